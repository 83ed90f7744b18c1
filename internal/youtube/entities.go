package youtube

import "regexp"

var (
	entityPattern = regexp.MustCompile(`&[#\w]+;`)
	entityTable   = map[string]string{
		"&amp;":  "&",
		"&lt;":   "<",
		"&gt;":   ">",
		"&quot;": `"`,
		"&#39;":  "'",
		"&apos;": "'",
		"&#x27;": "'",
		"&#x2F;": "/",
		"&#x60;": "`",
		"&#x3D;": "=",
	}
)

// DecodeEntities replaces the HTML entities YouTube emits in snippets.
// Unknown entities are left as-is.
func DecodeEntities(text string) string {
	return entityPattern.ReplaceAllStringFunc(text, func(match string) string {
		if decoded, ok := entityTable[match]; ok {
			return decoded
		}
		return match
	})
}
