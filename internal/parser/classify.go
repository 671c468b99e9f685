package parser

import "strings"

var createdInstructionNames = map[string]bool{
	"createorder":             true,
	"create_order":            true,
	"createorderwithnonce":    true,
}

var fulfilledInstructionNames = map[string]bool{
	"fulfillorder":  true,
	"fulfill_order": true,
}

var createdLogMarkers = []string{
	"order created",
	"ordercreated",
	"instruction: createorder",
	"instruction: createorderwithnonce",
}

var fulfilledLogMarkers = []string{
	"order fulfilled",
	"orderfulfilled",
	"instruction: fulfillorder",
}

// classifyInstructions matches the configured program's instructions
// against the known instruction names (spec §4.3 "Event
// classification"). Returns ("", nil) if no instruction decoded to a
// known name.
func classifyInstructions(instructions []Instruction, programIDs map[string]bool) (eventType string, matched *Instruction) {
	for i := range instructions {
		ins := &instructions[i]
		if len(programIDs) > 0 && !programIDs[ins.ProgramID] {
			continue
		}
		name := strings.ToLower(ins.Name)
		if name == "" {
			continue
		}
		if createdInstructionNames[name] {
			return "OrderCreated", ins
		}
		if fulfilledInstructionNames[name] {
			return "OrderFulfilled", ins
		}
	}
	return "", nil
}

// classifyFromLogs is the fallback path when no instruction decoded to
// a known name (spec §4.3 "fall back to log-scanning").
func classifyFromLogs(logs []string) string {
	for _, line := range logs {
		lower := strings.ToLower(line)
		for _, marker := range createdLogMarkers {
			if strings.Contains(lower, marker) {
				return "OrderCreated"
			}
		}
		for _, marker := range fulfilledLogMarkers {
			if strings.Contains(lower, marker) {
				return "OrderFulfilled"
			}
		}
	}
	return ""
}
