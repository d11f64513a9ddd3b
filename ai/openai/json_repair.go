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

// repairJSON fixes the formatting slips chat models make most often in
// verdict objects: keys missing one or both quotes (`{index": 1`,
// `{index: 1`) and trailing commas before a closing bracket. String
// contents are never modified.
func repairJSON(s string) string {
	in := []rune(s)
	out := make([]rune, 0, len(in)+16)

	inString := false
	for i := 0; i < len(in); i++ {
		ch := in[i]

		if inString {
			out = append(out, ch)
			switch ch {
			case '\\':
				if i+1 < len(in) {
					i++
					out = append(out, in[i])
				}
			case '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
			out = append(out, ch)
		case ',':
			if next := skipSpace(in, i+1); next < len(in) && (in[next] == '}' || in[next] == ']') {
				continue
			}
			out = append(out, ch)
			out, i = repairKey(in, i+1, out)
		case '{':
			out = append(out, ch)
			out, i = repairKey(in, i+1, out)
		default:
			out = append(out, ch)
		}
	}

	return string(out)
}

// repairKey copies the whitespace starting at pos, then quotes a bare
// identifier if it is used as an object key. It returns the extended output
// and the index of the last consumed rune.
func repairKey(in []rune, pos int, out []rune) ([]rune, int) {
	i := pos
	for i < len(in) && isSpace(in[i]) {
		out = append(out, in[i])
		i++
	}
	if i >= len(in) || !isLetter(in[i]) {
		return out, i - 1
	}

	start := i
	for i < len(in) && (isLetter(in[i]) || in[i] == '_' || (in[i] >= '0' && in[i] <= '9')) {
		i++
	}
	ident := in[start:i]

	switch {
	case i+1 < len(in) && in[i] == '"' && in[i+1] == ':':
		// closing quote present, opening quote missing
		out = append(out, '"')
		out = append(out, ident...)
		out = append(out, '"')
		return out, i
	case skipSpace(in, i) < len(in) && in[skipSpace(in, i)] == ':':
		out = append(out, '"')
		out = append(out, ident...)
		out = append(out, '"')
		return out, i - 1
	}

	out = append(out, ident...)
	return out, i - 1
}

func skipSpace(in []rune, i int) int {
	for i < len(in) && isSpace(in[i]) {
		i++
	}
	return i
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}
