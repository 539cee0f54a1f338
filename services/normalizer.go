package services

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// NameLimit is the feed's ceiling for listing and city names.
	NameLimit = 25
	// FeedDescriptionLimit is the feed's ceiling for descriptions.
	FeedDescriptionLimit = 25
	// DescriptionLimit caps descriptions stored on a Listing.
	DescriptionLimit = 300
	// KeywordSeparator is the delimiter the feed expects between keywords.
	KeywordSeparator = "; "

	locationSuffix = " in "
)

var (
	// tagRegexp is the fallback markup stripper when HTML parsing fails.
	tagRegexp = regexp.MustCompile(`<[^>]*>`)

	titleCaser = cases.Title(language.AmericanEnglish)
)

// ParsePrice extracts a price from free-form text such as "$ 575,000".
// Everything except digits and '.' is dropped; unparseable input yields 0.
func ParsePrice(raw string) float64 {
	digits := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, raw)
	if digits == "" {
		return 0
	}
	v, err := strconv.ParseFloat(digits, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// FormatPrice renders a price as "$575,000" or "$1,234.50".
func FormatPrice(v float64) string {
	if v < 0 {
		return "-" + FormatPrice(-v)
	}

	s := strconv.FormatFloat(v, 'f', 2, 64)
	intPart, frac, _ := strings.Cut(s, ".")
	if frac == "00" {
		return "$" + groupThousands(intPart)
	}
	return "$" + groupThousands(intPart) + "." + frac
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// ExtractInt parses counts like "1,833" or "3 beds"; unparseable input yields 0.
func ExtractInt(raw string) int {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	if digits == "" {
		return 0
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}

// TruncateName fits a listing name into NameLimit characters. A trailing
// " in <location>" is dropped before the text is hard-cut.
func TruncateName(name string) string {
	if runeLen(name) <= NameLimit {
		return name
	}
	if i := strings.LastIndex(name, locationSuffix); i > 0 {
		short := strings.TrimSpace(name[:i])
		if runeLen(short) <= NameLimit {
			return short
		}
		name = short
	}
	return strings.TrimSpace(Truncate(name, NameLimit))
}

// Truncate cuts s to at most n characters.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// StripHTML replaces markup in s with spaces and returns the text content.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return tagRegexp.ReplaceAllString(s, " ")
	}
	doc.Find("script, style").Remove()

	var b strings.Builder
	for _, n := range doc.Find("body").Nodes {
		collectText(n, &b)
	}
	return b.String()
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		return
	}
	b.WriteByte(' ')
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
	b.WriteByte(' ')
}

// NormaliseText strips leading/trailing whitespace and collapses internal whitespace.
func NormaliseText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// CleanDescription strips markup, collapses whitespace and caps the result at limit characters.
func CleanDescription(raw string, limit int) string {
	return strings.TrimSpace(Truncate(NormaliseText(StripHTML(raw)), limit))
}

// NormalizeDescription prepares a description for the feed: markup removed,
// cut to FeedDescriptionLimit, and title-cased when mostly upper case.
func NormalizeDescription(raw string) string {
	text := CleanDescription(raw, FeedDescriptionLimit)
	if mostlyUpper(text) {
		text = titleCaser.String(strings.ToLower(text))
	}
	return text
}

// mostlyUpper reports whether more than half of s's characters are upper case.
func mostlyUpper(s string) bool {
	total, upper := 0, 0
	for _, r := range s {
		total++
		if unicode.IsUpper(r) {
			upper++
		}
	}
	return total > 0 && upper*2 > total
}

// FixKeywords re-delimits a keyword list from sep to target, trimming parts
// and dropping empty ones.
func FixKeywords(kw, sep, target string) string {
	parts := strings.Split(kw, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, target)
}

// CompleteAddress appends ", <city>, <region>" to a street address that
// does not already mention the city.
func CompleteAddress(address, city, region string) string {
	address = strings.TrimSpace(address)
	if address == "" {
		return ""
	}
	city = strings.TrimSpace(city)
	if city == "" || strings.Contains(strings.ToLower(address), strings.ToLower(city)) {
		return address
	}
	if region == "" {
		return address + ", " + city
	}
	return address + ", " + city + ", " + region
}

func runeLen(s string) int {
	return len([]rune(s))
}
