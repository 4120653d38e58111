package launcher

import (
	"errors"
	"strings"
)

// ErrEmptyCommand is returned when Split is given no command at all.
var ErrEmptyCommand = errors.New("launcher: empty command")

// Split parses argv into {launcher, launcher_args, program} per the
// boundary rule of spec section 4.3: the first token that is not the
// launcher binary, not a known option of the launcher, and not a
// positional consumed by a known option, begins the program. An explicit
// "--" token always overrides the heuristic. warnings reports unknown
// flags encountered on a recognized launcher family (spec 8 scenario 2).
func Split(argv []string) (Split, []string, error) {
	if len(argv) == 0 {
		return Split{}, nil, ErrEmptyCommand
	}

	result := Split{Launcher: argv[0]}
	family, known := Lookup(argv[0])

	// An explicit "--" is always the boundary, takes priority over any
	// heuristic, and makes Split idempotent on its own Reassemble()
	// output (spec 8).
	for i := 1; i < len(argv); i++ {
		if argv[i] == "--" {
			result.LauncherArgs = append([]string(nil), argv[1:i]...)
			result.Program = append([]string(nil), argv[i+1:]...)
			return result, nil, nil
		}
	}

	if !known {
		// Unknown launcher fallback (spec 4.3): no "--" present, so the
		// second token onward is the program; we cannot safely guess
		// which subsequent tokens are the launcher's own flags.
		if len(argv) > 1 {
			result.Program = append([]string(nil), argv[1:]...)
		}
		return result, nil, nil
	}

	var warnings []string
	idx := 1
	for idx < len(argv) {
		tok := argv[idx]
		if arity, ok := family.Options[tok]; ok {
			result.LauncherArgs = append(result.LauncherArgs, tok)
			idx++
			if arity == Arity1 && idx < len(argv) {
				result.LauncherArgs = append(result.LauncherArgs, argv[idx])
				idx++
			}
			continue
		}
		if strings.HasPrefix(tok, "-") {
			warnings = append(warnings, "unrecognized "+family.Name+" flag "+tok+" treated as start of program")
		}
		break
	}

	result.Program = append([]string(nil), argv[idx:]...)
	return result, warnings, nil
}
