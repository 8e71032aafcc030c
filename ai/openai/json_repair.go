// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package openai

import "strings"

// repairJSON fixes common formatting slips in model replies: keys missing
// their opening quote (`, type":` becomes `, "type":`) and trailing commas
// before a closing bracket. String contents are left alone.
func repairJSON(s string) string {
	return stripTrailingCommas(quoteKeys(s))
}

func quoteKeys(s string) string {
	in := []rune(s)
	out := make([]rune, 0, len(in)+16)

	for i := 0; i < len(in); {
		ch := in[i]
		if ch != '{' && ch != ',' {
			out = append(out, ch)
			i++
			continue
		}
		out = append(out, ch)
		i++

		for i < len(in) && isSpace(in[i]) {
			out = append(out, in[i])
			i++
		}
		if i >= len(in) || in[i] == '"' || !isLetter(in[i]) {
			continue
		}

		keyStart := i
		for i < len(in) && (isLetter(in[i]) || in[i] == '_') {
			i++
		}
		if i+1 < len(in) && in[i] == '"' && in[i+1] == ':' {
			out = append(out, '"')
		}
		out = append(out, in[keyStart:i]...)
	}
	return string(out)
}

func stripTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			b.WriteByte(ch)
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		if ch == '"' {
			inString = true
		}
		if ch == ',' {
			j := i + 1
			for j < len(s) && isSpace(rune(s[j])) {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		b.WriteByte(ch)
	}
	return b.String()
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}
