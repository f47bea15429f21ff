package bot

import "strings"

const menuButtonLabel = "Menu"

// splitCommand separates the leading command word from the rest of the text.
func splitCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ""
	}
	i := strings.IndexAny(text, " \t\n")
	if i < 0 {
		return text, ""
	}
	return text[:i], strings.TrimSpace(text[i:])
}

// normalizeCommand lowercases a slash command and strips an "@botname"
// suffix, so "/search@ClipShelfBot" matches "/search" in group chats.
func normalizeCommand(word, botUser string) string {
	word = strings.ToLower(strings.TrimSpace(word))
	if !strings.HasPrefix(word, "/") {
		return ""
	}
	if at := strings.Index(word, "@"); at > 0 {
		suffix := word[at+1:]
		if botUser != "" && suffix != strings.ToLower(botUser) {
			// A command addressed to a different bot is not ours.
			return ""
		}
		word = word[:at]
	}
	return word
}

// isMenuLabel reports whether bare text is a tap on the reply-keyboard menu
// button. The button is only offered in private chats, so the same word in a
// group is ordinary conversation.
func isMenuLabel(text string, private bool) bool {
	return private && text == menuButtonLabel
}

func helpText(botUser string) string {
	return "I index videos posted in group chats by their caption and find them again for you.\n\n" +
		"/search <name> — find a video by name (quote the name for an exact phrase)\n" +
		"/menu — browse everything I have indexed\n" +
		"/help — this message\n\n" +
		"In a group I search that group. In a private chat I search every group we share.\n" +
		"Group chats: you can also address commands as /search@" + botUser + "."
}

const usageText = "Tell me what to look for: /search <name>"

const noScopeText = "I haven't seen you in any group chat yet. Say something in a group where I am a member, then search again."

const notFoundText = "Nothing found under that name."

const techIssueText = "Something went wrong on my side. Please try again in a moment."

const forwardFailedText = "I couldn't forward that video — the original message may have been deleted."
