package parser

import (
	"encoding/base64"
	"encoding/hex"
	"regexp"
	"strings"
)

// orderIDPatterns are tried in order against each log line; the first
// match wins (spec §4.3 "OrderId extraction"). All are case-insensitive
// and the extracted group is lowercased by the caller.
var orderIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)OrderId:\s*(?:0x)?([a-f0-9]{64})`),
	regexp.MustCompile(`(?i)Order\s+created:\s*(?:0x)?([a-f0-9]{64})`),
	regexp.MustCompile(`(?i)Order\s+fulfilled:\s*(?:0x)?([a-f0-9]{64})`),
	regexp.MustCompile(`(?i)orderId["\s:=]+(?:0x)?([a-f0-9]{64})`),
	regexp.MustCompile(`(?i)Order\s+Id:\s*([0-9]{10,})`),
}

const programDataPrefix = "Program data: "

// extractOrderID scans log messages in order, trying orderIDPatterns
// first and the base64 "Program data:" fallback last (spec §4.3
// pattern 6). Returns "" if nothing matches.
func extractOrderID(logs []string) string {
	for _, line := range logs {
		for _, re := range orderIDPatterns {
			m := re.FindStringSubmatch(line)
			if len(m) == 2 {
				return strings.ToLower(m[1])
			}
		}
	}

	for _, line := range logs {
		if !strings.HasPrefix(line, programDataPrefix) {
			continue
		}
		if id, ok := decodeProgramDataOrderID(line); ok {
			return id
		}
	}

	return ""
}

// decodeProgramDataOrderID implements spec §4.3 pattern 6: base64-decode
// the payload after "Program data: "; if the decoded length is at
// least 40 bytes, take bytes [8,40) as the candidate orderId, accepting
// it only if it is not all-zero or all-0xff.
func decodeProgramDataOrderID(line string) (string, bool) {
	payload := strings.TrimPrefix(line, programDataPrefix)
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil || len(decoded) < 40 {
		return "", false
	}

	candidate := decoded[8:40]
	if isAllBytes(candidate, 0x00) || isAllBytes(candidate, 0xff) {
		return "", false
	}
	return hex.EncodeToString(candidate), true
}

func isAllBytes(b []byte, v byte) bool {
	for _, x := range b {
		if x != v {
			return false
		}
	}
	return true
}
