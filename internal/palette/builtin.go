package palette

import (
	"errors"
	"fmt"
	"sort"
)

// builtins holds colorschemes compiled into the binary, as hex codes.
var builtins = map[string][]string{
	"kanagawa": {
		"#16161D", "#1F1F28", "#2A2A37", "#363646", "#54546D",
		"#223249", "#2D4F67", "#2B3328", "#49443C", "#43242B",
		"#252535", "#DCD7BA", "#C8C093", "#727169", "#717C7C",
		"#76946A", "#98BB6C", "#C34043", "#E82424", "#E46876",
		"#FF5D62", "#DCA561", "#FF9E3B", "#FFA066", "#938056",
		"#C0A36E", "#E6C384", "#6A9589", "#7AA89F", "#658594",
		"#7E9CD8", "#7FB4CA", "#A3D4D5", "#938AA9", "#957FB8",
		"#9CABCA", "#D27E99",
	},
}

// ErrUnknownColorscheme is wrapped when no builtin matches a name.
var ErrUnknownColorscheme = errors.New("palette: unknown colorscheme")

// Builtin returns the hex codes of a builtin colorscheme.
func Builtin(name string) ([]string, error) {
	hex, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColorscheme, name)
	}
	return append([]string(nil), hex...), nil
}

// BuiltinNames lists the builtin colorschemes in sorted order.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
