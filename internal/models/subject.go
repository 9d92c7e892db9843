package models

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Subject is one of the three Class-12 science subjects the textbooks cover.
type Subject int

const (
	Biology Subject = iota
	Chemistry
	Physics
)

// SubjectCount is the number of Subject values.
const SubjectCount = int(Physics) + 1

// subjectInfo is the fixed, process-wide description of a subject.
type subjectInfo struct {
	name     string
	coverage string // topic areas listed in the validation prompt
	chapters []string
}

var subjectTable = [SubjectCount]subjectInfo{
	Biology: {
		name:     "biology",
		coverage: "Reproduction, Genetics, Evolution, Plant Physiology, Human Systems, Ecology, Biotechnology",
		chapters: []string{
			"Reproduction in Lower and Higher Plants",
			"Reproduction in Lower and Higher Animals",
			"Inheritance and Variation",
			"Molecular Basis of Inheritance",
			"Origin and Evolution of Life",
			"Plant Water Relation",
			"Plant Growth and Mineral Nutrition",
			"Respiration and Circulation",
			"Control and Co-ordination",
			"Human Health and Diseases",
			"Enhancement of Food Production",
			"Biotechnology",
			"Organisms and Populations",
			"Ecosystems and Energy Flow",
			"Biodiversity, Conservation and Environmental Issues",
		},
	},
	Chemistry: {
		name:     "chemistry",
		coverage: "Solid State, Solutions, Thermodynamics, Electrochemistry, Organic Chemistry, Coordination Compounds",
		chapters: []string{
			"Solid State",
			"Solutions",
			"Ionic Equilibria",
			"Chemical Thermodynamics",
			"Electrochemistry",
			"Chemical Kinetics",
			"Elements of Groups 16, 17 and 18",
			"Transition and Inner transition Elements",
			"Coordination Compounds",
			"Halogen Derivatives",
			"Alcohols, Phenols and Ethers",
			"Aldehydes, Ketones and Carboxylic acids",
			"Amines",
			"Biomolecules",
			"Introduction to Polymer Chemistry",
			"Green Chemistry and Nanochemistry",
		},
	},
	Physics: {
		name:     "physics",
		coverage: "Rotational Dynamics, Fluids, Thermodynamics, Waves, Optics, Electromagnetism, Modern Physics, Semiconductors",
		chapters: []string{
			"Rotational Dynamics",
			"Mechanical Properties of Fluids",
			"Kinetic Theory of Gases and Radiation",
			"Thermodynamics",
			"Oscillations",
			"Superposition of Waves",
			"Wave Optics",
			"Electrostatics",
			"Current Electricity",
			"Magnetic Fields due to Electric Current",
			"Magnetic Materials",
			"Electromagnetic induction",
			"AC Circuits",
			"Dual Nature of Radiation and Matter",
			"Structure of Atoms and Nuclei",
			"Semiconductor Devices",
		},
	},
}

var titleCaser = cases.Title(language.English)

// Subjects returns every known subject in catalog order.
func Subjects() []Subject {
	return []Subject{Biology, Chemistry, Physics}
}

// ParseSubject maps a user-supplied name such as " Physics" to a Subject.
func ParseSubject(s string) (Subject, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, subj := range Subjects() {
		if subjectTable[subj].name == s {
			return subj, true
		}
	}
	return 0, false
}

// Valid reports whether s is one of the known subjects.
func (s Subject) Valid() bool {
	return s >= Biology && int(s) < SubjectCount
}

func (s Subject) String() string {
	if !s.Valid() {
		return "unknown"
	}
	return subjectTable[s].name
}

// Title returns the display name, e.g. "Chemistry".
func (s Subject) Title() string {
	return titleCaser.String(s.String())
}

// Coverage returns the summary of topic areas used when validating topics.
func (s Subject) Coverage() string {
	if !s.Valid() {
		return ""
	}
	return subjectTable[s].coverage
}

// Chapters returns a copy of the subject's chapter list in textbook order.
func (s Subject) Chapters() []string {
	if !s.Valid() {
		return nil
	}
	out := make([]string, len(subjectTable[s].chapters))
	copy(out, subjectTable[s].chapters)
	return out
}

// ValidateCatalog checks that every chapter name is non-empty and unique within its subject.
func ValidateCatalog() error {
	for _, subj := range Subjects() {
		seen := make(map[string]bool)
		for i, ch := range subjectTable[subj].chapters {
			if strings.TrimSpace(ch) == "" {
				return fmt.Errorf("%s: chapter %d has an empty name", subj, i+1)
			}
			if seen[ch] {
				return fmt.Errorf("%s: duplicate chapter %q", subj, ch)
			}
			seen[ch] = true
		}
	}
	return nil
}
