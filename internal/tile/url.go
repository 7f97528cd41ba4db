package tile

import (
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
)

var switchPattern = regexp.MustCompile(`(?i){switch:([a-z,\d]*)}`)

// ResolveURL substitutes the first {zoom}, {z}, {x}, {y} and {quadkey}
// placeholders of scheme and then resolves {switch:a,b,c} to one of its
// alternatives, chosen at random on every call.
func ResolveURL(scheme string, x, y, zoom int, quadkey string) string {
	url := scheme
	url = strings.Replace(url, "{zoom}", strconv.Itoa(zoom), 1)
	url = strings.Replace(url, "{z}", strconv.Itoa(zoom), 1)
	url = strings.Replace(url, "{x}", strconv.Itoa(x), 1)
	url = strings.Replace(url, "{y}", strconv.Itoa(y), 1)
	url = strings.Replace(url, "{quadkey}", quadkey, 1)
	return ResolveSwitch(url)
}

// ResolveSwitch replaces the first {switch:...} segment with a random choice.
// A URL without the segment is returned unchanged.
func ResolveSwitch(url string) string {
	loc := switchPattern.FindStringSubmatchIndex(url)
	if loc == nil {
		return url
	}
	choices := strings.Split(url[loc[2]:loc[3]], ",")
	choice := choices[rand.IntN(len(choices))]
	return url[:loc[0]] + choice + url[loc[1]:]
}
