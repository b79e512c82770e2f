package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/json", ContentType("timeline.json"))
	assert.Equal(t, "text/markdown; charset=utf-8", ContentType("report.md"))
	assert.Equal(t, "text/csv", ContentType("History.CSV"))
	assert.Equal(t, "text/plain; charset=utf-8", ContentType("auth.log"))
	assert.Equal(t, "application/octet-stream", ContentType("dropper.exe"))
}
