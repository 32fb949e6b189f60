package pathdb

import "strings"

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func splitByte(s string, sep byte) (string, string, bool) {
	i := strings.IndexByte(s, sep)
	if i < 0 {
		return s, "", false
	} else {
		return s[:i], s[i+1:], true
	}
}
