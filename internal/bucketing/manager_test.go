package bucketing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashKeyIsStable(t *testing.T) {
	bm := NewBucketingManager()
	a := bm.HashKey("Camera", "cam-1")
	assert.Len(t, a, 16)
	assert.Equal(t, a, bm.HashKey("Camera", "cam-1"))
	assert.NotEqual(t, a, bm.HashKey("Camera", "cam-2"))
}

func TestHashPropertiesIgnoresOrder(t *testing.T) {
	bm := NewBucketingManager()
	a := bm.HashProperties([]string{"Tag", "Label"}, map[string]any{"name": "door", "weight": int64(3)})
	b := bm.HashProperties([]string{"Label", "Tag"}, map[string]any{"weight": int64(3), "name": "door"})
	assert.Equal(t, a, b)
}
