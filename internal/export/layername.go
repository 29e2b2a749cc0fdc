package export

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MaxLayerName is the longest layer name LayerName returns.
const MaxLayerName = 50

var (
	invalidRun    = regexp.MustCompile(`[^a-z0-9_]+`)
	underscoreRun = regexp.MustCompile(`_+`)
)

// LayerName turns a feature-type name into a layer identifier made only of
// [a-z0-9_], at most MaxLayerName bytes long. fallback is used when name is
// empty or nothing is left after cleaning.
func LayerName(name, fallback string) string {
	if name == "" {
		name = fallback
	}
	if out := clean(name); out != "" {
		return truncateName(out)
	}
	if out := clean(fallback); out != "" {
		return truncateName(out)
	}
	return "layer"
}

// FallbackLayerName is the layer name used for a type without a usable name.
func FallbackLayerName(typeID int) string {
	return "objtype_" + strconv.Itoa(typeID)
}

func clean(s string) string {
	s = cases.Lower(language.Norwegian).String(strings.TrimSpace(s))
	s = invalidRun.ReplaceAllString(s, "_")
	s = underscoreRun.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

func truncateName(s string) string {
	if len(s) > MaxLayerName {
		return s[:MaxLayerName]
	}
	return s
}

// layerNames hands out unique layer names for one output container.
type layerNames struct {
	used map[string]bool
}

func newLayerNames() *layerNames {
	return &layerNames{used: make(map[string]bool)}
}

// claim returns name if it is free, otherwise name suffixed with the type
// id, then with _2, _3 and so on. The result is reserved and stays within
// MaxLayerName.
func (n *layerNames) claim(name string, typeID int) string {
	candidate := name
	if n.used[candidate] {
		candidate = withSuffix(name, "_"+strconv.Itoa(typeID))
	}
	for i := 2; n.used[candidate]; i++ {
		candidate = withSuffix(name, "_"+strconv.Itoa(typeID)+"_"+strconv.Itoa(i))
	}
	n.used[candidate] = true
	return candidate
}

// release frees a name whose layer could not be written.
func (n *layerNames) release(name string) {
	delete(n.used, name)
}

func withSuffix(name, suffix string) string {
	if len(name)+len(suffix) > MaxLayerName {
		name = name[:MaxLayerName-len(suffix)]
	}
	return name + suffix
}
