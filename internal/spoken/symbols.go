package spoken

// wordSymbols maps single spoken tokens to the characters they stand for.
// "and" and "star" are always substituted, even where the speaker meant the word.
var wordSymbols = map[string]string{
	"at":          "@",
	"dot":         ".",
	"underscore":  "_",
	"dash":        "-",
	"hyphen":      "-",
	"plus":        "+",
	"hash":        "#",
	"star":        "*",
	"asterisk":    "*",
	"dollar":      "$",
	"percent":     "%",
	"and":         "&",
	"ampersand":   "&",
	"exclamation": "!",
	"question":    "?",
	"comma":       ",",
	"colon":       ":",
	"semicolon":   ";",
	"slash":       "/",
	"backslash":   `\`,
	"equal":       "=",
	"equals":      "=",
	"quote":       `"`,
	"apostrophe":  "'",
	"pipe":        "|",
	"caret":       "^",
	"space":       " ",
}

// phraseSymbols holds two-word names. They are matched before single tokens.
var phraseSymbols = map[string]string{
	"exclamation mark":  "!",
	"question mark":     "?",
	"equal sign":        "=",
	"equals sign":       "=",
	"single quote":      "'",
	"double quote":      `"`,
	"bracket open":      "[",
	"bracket close":     "]",
	"brace open":        "{",
	"brace close":       "}",
	"parenthesis open":  "(",
	"parenthesis close": ")",
	"open parenthesis":  "(",
	"close parenthesis": ")",
	"greater than":      ">",
	"less than":         "<",
}

var providerDomains = map[string]string{
	"gmail":   ".com",
	"outlook": ".com",
	"yahoo":   ".com",
	"hotmail": ".com",
}
