package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDomainMemory(t *testing.T) {
	dm := NewDomainMemory(time.Hour)

	assert.False(t, dm.Forbidden("https://vimeo.com/1"))
	dm.MarkForbidden("https://www.vimeo.com/1")
	assert.True(t, dm.Forbidden("https://vimeo.com/2"))
	assert.False(t, dm.Forbidden("https://youtube.com/watch?v=1"))

	dm.Forget("https://vimeo.com/")
	assert.False(t, dm.Forbidden("https://vimeo.com/1"))
}

func TestDomainMemoryExpires(t *testing.T) {
	dm := NewDomainMemory(10 * time.Millisecond)
	dm.MarkForbidden("https://vimeo.com/1")
	time.Sleep(30 * time.Millisecond)
	assert.False(t, dm.Forbidden("https://vimeo.com/1"))
}

func TestNilDomainMemory(t *testing.T) {
	var dm *DomainMemory
	assert.False(t, dm.Forbidden("https://vimeo.com/1"))
}
