// Package prompts holds the text sent to the model.
//
// Fixed instructions that are program logic (the protocol correction, the
// exhaustion apology, tool result framing) are Go constants. The system
// instruction is a named template loaded at call time, so it can be edited
// without a rebuild; a default copy is embedded in the binary.
package prompts
