package prompts

import "fmt"

// ProtocolCorrection is appended as a user turn when the model's output
// matched none of the accepted response shapes.
const ProtocolCorrection = `System notice: your last output could not be parsed. Reply with exactly one JSON object:
- To call tools: {"tool_calls": [{"tool": "<tool name>", "args": "<argument string>"}], "reply": null}
- To answer the user: {"reply": "<message for the user>"}
Do not combine the two, and do not add text outside the JSON object.`

// ExhaustedReply is returned when the iteration budget runs out before
// the model produced a final answer.
const ExhaustedReply = "Sorry, I thought about this for a long time but still couldn't resolve your request. I may have been going in circles."

// BackendErrorReply is the user-facing text for a failed model call.
func BackendErrorReply(err error) string {
	return fmt.Sprintf("System error: model call failed - %v", err)
}

// ToolResultLine frames one tool result for the model.
func ToolResultLine(tool, resultJSON string) string {
	return fmt.Sprintf("Tool %s result: %s", tool, resultJSON)
}
