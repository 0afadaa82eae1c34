package errors

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

const docBase = "https://github.com/vango-dev/nested/blob/main/docs/errors.md#"

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Config Errors (N100-N199)
	// ============================================

	"N100": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		Detail:   "nested.json could not be parsed. Check for trailing commas and unquoted keys.",
		DocURL:   docBase + "n100",
	},
	"N101": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "No nested.json was found in the directory or any of its parents.",
		DocURL:   docBase + "n101",
	},
	"N102": {
		Category: CategoryConfig,
		Message:  "Invalid port",
		Detail:   "server.port must be between 1 and 65535.",
		DocURL:   docBase + "n102",
	},
	"N103": {
		Category: CategoryConfig,
		Message:  "Unknown strategy",
		Detail:   "The strategy name is not one of the built-in open or select strategies.",
		DocURL:   docBase + "n103",
	},
	"N104": {
		Category: CategoryConfig,
		Message:  "Invalid log level",
		Detail:   "log.level must be one of debug, info, warn or error.",
		DocURL:   docBase + "n104",
	},

	// ============================================
	// Tree Definition Errors (N200-N299)
	// ============================================

	"N200": {
		Category: CategoryTree,
		Message:  "Tree file unreadable",
		Detail:   "The tree definition file could not be read.",
		DocURL:   docBase + "n200",
	},
	"N201": {
		Category: CategoryTree,
		Message:  "Tree file malformed",
		Detail:   "The tree definition is not valid YAML or JSON.",
		DocURL:   docBase + "n201",
	},
	"N202": {
		Category: CategoryTree,
		Message:  "Duplicate node id",
		Detail:   "Every node in a tree definition needs a unique id.",
		DocURL:   docBase + "n202",
	},
	"N203": {
		Category: CategoryTree,
		Message:  "Unknown node",
		Detail:   "A step or list refers to a node the tree does not define.",
		DocURL:   docBase + "n203",
	},
	"N204": {
		Category: CategoryTree,
		Message:  "Invalid step",
		Detail:   "Each step needs exactly one of open, close, select, deselect or unregister.",
		DocURL:   docBase + "n204",
	},

	// ============================================
	// Session Errors (N300-N399)
	// ============================================

	"N300": {
		Category: CategorySession,
		Message:  "Session not found",
		Detail:   "The session id is unknown or the session expired.",
		DocURL:   docBase + "n300",
	},
	"N301": {
		Category: CategoryProtocol,
		Message:  "Invalid request body",
		Detail:   "The request body could not be decoded.",
		DocURL:   docBase + "n301",
	},
	"N302": {
		Category: CategoryProtocol,
		Message:  "WebSocket upgrade failed",
		Detail:   "The change stream requires a WebSocket upgrade request.",
		DocURL:   docBase + "n302",
	},

	// ============================================
	// CLI Errors (N400-N499)
	// ============================================

	"N400": {
		Category: CategoryCLI,
		Message:  "Missing argument",
		Detail:   "The command needs more arguments. Run it with --help for usage.",
		DocURL:   docBase + "n400",
	},
}

// GetAllCodes returns all registered error codes, sorted.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}

// SuggestName returns a "did you mean" hint for input, picking the closest
// candidate by edit distance. It returns "" when nothing is close enough.
func SuggestName(input string, candidates []string) string {
	best, bestDist := "", -1
	needle := strings.ToLower(input)
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(needle, strings.ToLower(c))
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}
	if best == "" || bestDist > maxSuggestDistance(input) {
		return ""
	}
	return "Did you mean " + best + "?"
}

func maxSuggestDistance(input string) int {
	if n := len(input) / 2; n > 2 {
		return n
	}
	return 2
}
