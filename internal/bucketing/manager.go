package bucketing

import (
	"fmt"
	"hash"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/spaolacci/murmur3"
)

// BucketingManager derives stable murmur3 ids for graph nodes that carry no
// natural key.
type BucketingManager struct {
	hasherPool sync.Pool
}

func NewBucketingManager() *BucketingManager {
	bm := &BucketingManager{}
	bm.hasherPool = sync.Pool{
		New: func() interface{} {
			return murmur3.New64()
		},
	}
	return bm
}

// HashKey returns a stable 16-char hex digest of parts joined by '|'.
func (bm *BucketingManager) HashKey(parts ...string) string {
	return fmt.Sprintf("%016x", bm.getHash(strings.Join(parts, "|")))
}

// HashProperties digests a label set plus a property map independent of map order.
func (bm *BucketingManager) HashProperties(labels []string, props map[string]any) string {
	sortedLabels := append([]string(nil), labels...)
	sort.Strings(sortedLabels)

	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+1)
	parts = append(parts, strings.Join(sortedLabels, ":"))
	for _, k := range keys {
		parts = append(parts, k+"="+toString(props[k]))
	}
	return bm.HashKey(parts...)
}

func (bm *BucketingManager) getHash(key string) uint64 {
	hasher := bm.hasherPool.Get().(hash.Hash64)
	defer bm.hasherPool.Put(hasher)

	hasher.Reset()
	hasher.Write([]byte(key))
	return hasher.Sum64()
}

func toString(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
