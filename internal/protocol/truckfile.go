// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package protocol

import (
	"encoding/json"
	"os"
	"regexp"
)

// truckFileRe parses a RoRnet actor stream name into an optional GUID
// prefix, an optional UID-tagged segment, a display name and an ActorType
// extension. Ported from the Python client's truckfile_re.
var truckFileRe = regexp.MustCompile(
	`^((?P<guid>[a-z0-9]*)-)?((.*)UID-)?(?P<name>.*)\.(?P<type>truck|car|load|airplane|boat|trailer|train|fixed)$`,
)

// TruckFile is the result of parsing an actor stream's registration name.
type TruckFile struct {
	GUID string
	Name string
	Type ActorType
}

// ParseTruckFile extracts a TruckFile from a raw stream registration name
// such as "my_truck.truck" or "abcd1234-someUID-my_truck.car". ok is false
// if filename does not match the expected "<name>.<type>" shape.
func ParseTruckFile(filename string) (TruckFile, bool) {
	match := truckFileRe.FindStringSubmatch(filename)
	if match == nil {
		return TruckFile{}, false
	}

	groups := make(map[string]string, len(match))
	for i, name := range truckFileRe.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		groups[name] = match[i]
	}

	return TruckFile{
		GUID: groups["guid"],
		Name: groups["name"],
		Type: ActorType(groups["type"]),
	}, true
}

// LoadTruckNameMap reads a JSON object of {"filename.truck": "Display
// Name"} entries, used to prettify actor names the truckFileRe heuristic
// gets wrong (non-ASCII names, intentionally obfuscated UIDs, etc). The
// caller owns the returned map and passes it into DisplayName wherever
// it resolves an actor stream's name; there is no package-level state.
func LoadTruckNameMap(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// DisplayName resolves a truck filename to a human-readable name,
// checking names (an optionally-nil override table loaded via
// LoadTruckNameMap) before falling back to the regex-parsed name.
func DisplayName(filename string, names map[string]string) string {
	if names != nil {
		if name, ok := names[filename]; ok {
			return name
		}
	}
	if tf, ok := ParseTruckFile(filename); ok {
		return tf.Name
	}
	return filename
}
