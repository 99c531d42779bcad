package solverlog

import (
	"regexp"
	"strings"
)

// number matches fixed and scientific notation reals.
const number = `[-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?`

var numberToken = regexp.MustCompile(number)

// tensorBlock locates a labelled block of nine reals written as a 3x3 matrix.
type tensorBlock struct {
	name  string
	label *regexp.Regexp
	block *regexp.Regexp
}

func newTensorBlock(name, label string) tensorBlock {
	head := label + `[^=\n]*=`
	return tensorBlock{
		name:  name,
		label: regexp.MustCompile(head),
		block: regexp.MustCompile(head + `\s*((?:` + number + `\s+){8}` + number + `)`),
	}
}

var (
	deformationGradientBlock = newTensorBlock("deformation_gradient_aim", `deformation gradient aim`)
	piolaKirchhoffBlock      = newTensorBlock("piola_kirchhoff_stress", `Piola-{1,2}Kirchhoff stress`)
)

// errorLine matches "error <name> = <relative> (<value> <unit>, tol = <tol>)".
var errorLine = regexp.MustCompile(
	`\berror\s+([^=\n]+?)\s*=\s*(` + number + `)\s*\(\s*(` + number + `)\s*([^,()\n]*?)\s*,\s*tol\s*=\s*(` + number + `)\s*\)`)

var (
	convergedLine = regexp.MustCompile(`increment\s+\d+\s+converged`)
	positionLine  = regexp.MustCompile(
		`Time\s+(` + number + `)s:\s+Increment\s+(\d+)/(\d+)-(\d+)/(\d+)\s+of\s+load\s+case\s+(\d+)`)
)

// boxPattern matches a box-drawn diagnostic with the given label:
//
//	│ warning │
//	│   850   │
//	├─────────┤
//	│ first   │
//	│ second  │
func boxPattern(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)│\s*` + label + `\s*│\s*│\s*(\d+)\s*│\s*├─+┤\s*│(.*)│\s*│(.*)│`)
}

var (
	warningBox = boxPattern("warning")
	errorBox   = boxPattern("error")
)

func joinFragments(a, b string) string {
	return strings.TrimSpace(strings.TrimSpace(a) + " " + strings.TrimSpace(b))
}
