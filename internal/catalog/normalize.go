package catalog

import "strings"

// Normalize canonicalizes a title so that derived voice triggers and query
// phrases line up with what speech recognition produces. Parentheses are
// stripped, "&" becomes "and" and em-dashes become plain spaces.
//
// Roman numerals are rewritten by plain substring replacement: the first
// "III" becomes "3", then the first "II" becomes "2". This is a
// compatibility rule carried over from the voice trigger format and can
// misfire on titles containing "II" inside an unrelated word. Do not change
// it to a word-boundary rule; existing trigger phrases depend on it.
func Normalize(title string) string {
	s := strings.ReplaceAll(title, "(", "")
	s = strings.ReplaceAll(s, ")", "")
	s = strings.ReplaceAll(s, "&", "and")
	s = strings.Replace(s, "III", "3", 1)
	s = strings.Replace(s, "II", "2", 1)
	s = strings.ReplaceAll(s, " – ", " ")
	s = strings.ReplaceAll(s, "–", " ")
	s = strings.ReplaceAll(s, "—", " ")
	return s
}

// SplitTitle derives the primary/secondary title pair from a colon title
// such as "Batman: The Dark Knight". The split only happens when the colon
// sits past the second character, so titles like ":colon" stay whole.
// When no split applies the primary title equals the input and the
// secondary title is empty.
func SplitTitle(title string) (primary, secondary string) {
	if idx := strings.Index(title, ":"); idx > 1 {
		return strings.TrimSpace(title[:idx]), strings.TrimSpace(title[idx+1:])
	}
	return title, ""
}

// cleanEpisodeTitle applies the reduced rule set used for episode titles.
// Episode titles that merely restate the word "episode" carry no signal for
// voice matching and are blanked entirely.
func cleanEpisodeTitle(title string) string {
	if strings.Contains(strings.ToLower(title), "episode") {
		return ""
	}
	s := strings.ReplaceAll(title, "(", "")
	s = strings.ReplaceAll(s, ")", "")
	s = strings.ReplaceAll(s, "&", "and")
	return s
}
