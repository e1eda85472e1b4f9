package reels

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/anatolykoptev/go_reels/internal/engine"
)

// Output grammar of the script generator:
//
//	SCRIPT <n>            marker line, optional markdown or rule decoration
//	TITLE: <text>         defaults to "Breaking News <n>"
//	THEME: <text>         defaults to "General Updates"
//	WORD COUNT: <n>       ignored, recomputed from content
//	<content>             up to the next marker
var (
	markerRE   = regexp.MustCompile(`(?im)^[ \t*#>_═━─=\-]*SCRIPT[ \t]*#?[ \t]*(\d+)`)
	inlineRE   = regexp.MustCompile(`(?i)\bSCRIPT[ \t]*#?[ \t]*(\d+)`)
	titleRE    = regexp.MustCompile(`(?i)TITLE[ \t]*:[ \t]*([^\n]*?)[ \t]*(?:THEME[ \t]*:|\n|$)`)
	themeRE    = regexp.MustCompile(`(?i)THEME[ \t]*:[ \t]*([^\n]*?)[ \t]*(?:WORD[ \t]+COUNT|═|\n|$)`)
	labelRE    = regexp.MustCompile(`(?im)^[ \t*#_]*(?:TITLE|THEME|WORD[ \t]+COUNT)[ \t*_]*:[^\n]*`)
	ruleRE     = regexp.MustCompile(`[═━─]+|-{3,}|={3,}`)
	citationRE = regexp.MustCompile(`\[\d+(?:\s*,\s*\d+)*\]`)
	blankRunRE = regexp.MustCompile(`\n[ \t]*(?:\n[ \t]*)+\n`)
)

const defaultTheme = "General Updates"

// ParseResult holds the parsed scripts and every deviation from the
// expected grammar that was recovered from.
type ParseResult struct {
	Scripts  []engine.Script
	Warnings []string
}

// ParseScripts splits generator output into at most n scripts. Script
// numbers are taken as written, without checking order or uniqueness.
func ParseScripts(raw string, n int) ParseResult {
	var res ParseResult
	locs := markerRE.FindAllStringSubmatchIndex(raw, -1)
	if len(locs) == 0 {
		// No marker starts a line: split on mentions anywhere instead.
		locs = inlineRE.FindAllStringSubmatchIndex(raw, -1)
		if len(locs) > 0 {
			res.Warnings = append(res.Warnings, "SCRIPT markers found only inside lines; split on every mention")
		}
	}
	if len(locs) == 0 {
		if strings.TrimSpace(raw) != "" {
			res.Warnings = append(res.Warnings, "generated text has no SCRIPT markers; no scripts parsed")
		}
		return res
	}

	seen := make(map[int]bool)
	for i, loc := range locs {
		num, _ := strconv.Atoi(raw[loc[2]:loc[3]])
		end := len(raw)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		span := raw[loc[1]:end]

		if seen[num] {
			res.Warnings = append(res.Warnings, fmt.Sprintf("script number %d appears more than once", num))
		}
		seen[num] = true

		s, warns := parseSpan(num, span)
		res.Warnings = append(res.Warnings, warns...)
		if s.Content == "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("script %d has no content and was dropped", num))
			continue
		}
		res.Scripts = append(res.Scripts, s)
	}

	if len(res.Scripts) > n {
		res.Warnings = append(res.Warnings, fmt.Sprintf("model returned %d scripts, keeping the first %d", len(res.Scripts), n))
		res.Scripts = res.Scripts[:n]
	}
	if len(res.Scripts) < n {
		res.Warnings = append(res.Warnings, fmt.Sprintf("only %d of %d requested scripts were parsed", len(res.Scripts), n))
	}
	return res
}

func parseSpan(num int, span string) (engine.Script, []string) {
	var warns []string
	s := engine.Script{Number: num}

	s.Title = fieldValue(titleRE, span)
	if s.Title == "" {
		s.Title = fmt.Sprintf("Breaking News %d", num)
		warns = append(warns, fmt.Sprintf("script %d has no TITLE, using default", num))
	}
	s.Theme = fieldValue(themeRE, span)
	if s.Theme == "" {
		s.Theme = defaultTheme
		warns = append(warns, fmt.Sprintf("script %d has no THEME, using default", num))
	}

	s.Content = cleanContent(span)
	s.WordCount = len(strings.Fields(s.Content))
	return s, warns
}

func fieldValue(re *regexp.Regexp, span string) string {
	m := re.FindStringSubmatch(span)
	if len(m) < 2 {
		return ""
	}
	return strings.Trim(m[1], " \t*_\"")
}

// cleanContent drops label lines, rule glyphs and [n] citations.
func cleanContent(span string) string {
	c := labelRE.ReplaceAllString(span, "")
	c = ruleRE.ReplaceAllString(c, "")
	c = citationRE.ReplaceAllString(c, "")
	c = strings.Trim(c, " \t\r\n*#:_")
	c = blankRunRE.ReplaceAllString(c, "\n\n")
	return strings.TrimSpace(c)
}
