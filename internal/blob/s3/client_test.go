package s3blob

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalisePrefix(t *testing.T) {
	assert.Equal(t, "", normalisePrefix(""))
	assert.Equal(t, "governance/", normalisePrefix("governance"))
	assert.Equal(t, "governance/", normalisePrefix("governance/"))
	assert.Equal(t, "governance/", normalisePrefix("/governance"))
	assert.Equal(t, "a/b/", normalisePrefix("/a/b"))
}

func TestClientKey(t *testing.T) {
	c := &Client{prefix: normalisePrefix("governance")}
	assert.Equal(t, "governance/snapshots/2026-08-30.json", c.Key("snapshots/2026-08-30.json"))
	assert.Equal(t, "governance/archive/p1-p9.ndjson", c.Key("/archive/p1-p9.ndjson"))

	bare := &Client{}
	assert.Equal(t, "snapshots/x.json", bare.Key("snapshots/x.json"))
}
