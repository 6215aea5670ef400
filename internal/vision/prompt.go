package vision

import "strings"

// Prompt is the fixed instruction sent with every batch of screenshots.
var Prompt = buildPrompt()

func buildPrompt() string {
	var sb strings.Builder

	sb.WriteString("You are reading screenshots of Facebook search results for posts.\n")
	sb.WriteString("The screenshots are consecutive scroll positions of the same page, so a post may appear in more than one image.\n\n")

	sb.WriteString("## Task\n\n")
	sb.WriteString("For every distinct post that is visible, extract:\n")
	sb.WriteString("1. author (string): the display name of the person or page that wrote it\n")
	sb.WriteString("2. snippet (string): the visible body text, verbatim, without the \"See more\" link\n")
	sb.WriteString("3. timestamp (string): the date or relative time shown, e.g. \"3d\" or \"March 2 at 10:15\"; empty if not visible\n")
	sb.WriteString("4. permalink_hint (string): any group name, URL fragment or other text that would help find the post again; empty if none\n\n")
	sb.WriteString("Skip ads, suggested groups and posts whose text is not readable.\n\n")

	sb.WriteString("IMPORTANT: Respond with ONLY a valid JSON object. No markdown, no code blocks, no explanation.\n\n")
	sb.WriteString("Example structure:\n")
	sb.WriteString(`{"posts": [{"author": "Jane Doe", "snippet": "ISO a web designer for a small bakery site", "timestamp": "2h", "permalink_hint": "Small Business Owners group"}]}`)
	sb.WriteString("\n")

	return sb.String()
}
