package handler

import "strings"

// planPrefix is the passthrough trigger that asks the assistant to wrap its
// reply in <plan>…</plan>. No plan execution happens at this layer — that
// is left to whatever layer consumes the tagged response.
const planPrefix = "/plan "

const planInstruction = "Enclose your entire response in <plan>...</plan> tags."

// detectPlanRequest strips a leading "/plan " prefix from userText and, if
// present, returns the remaining text plus an instruction to append to the
// system prompt for this call.
func detectPlanRequest(userText string) (remaining string, instruction string, matched bool) {
	if !strings.HasPrefix(userText, planPrefix) {
		return userText, "", false
	}
	return strings.TrimPrefix(userText, planPrefix), planInstruction, true
}
