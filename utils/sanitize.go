package utils

import "github.com/microcosm-cc/bluemonday"

var sanitizer = bluemonday.UGCPolicy()

// Sanitize cleans rich-text HTML from the post and comment editors.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}
