package domain

// Discipline identifies one of the fixed ENEM subject areas an attempt can be
// taken in. The bare "linguagens" selector is not itself a Discipline: it must
// be resolved with a language before an attempt is created or looked up.
type Discipline string

const (
	Matematica         Discipline = "matematica"
	CienciasHumanas    Discipline = "ciencias-humanas"
	CienciasNatureza   Discipline = "ciencias-natureza"
	LinguagensIngles   Discipline = "linguagens-ingles"
	LinguagensEspanhol Discipline = "linguagens-espanhol"
)

// Disciplines returns every storable discipline key.
func Disciplines() []Discipline {
	return []Discipline{Matematica, CienciasHumanas, CienciasNatureza, LinguagensIngles, LinguagensEspanhol}
}

// ResolveDiscipline maps a request selector plus an optional language to a
// concrete discipline key. "linguagens" requires language "ingles" or
// "espanhol"; the language is ignored for every other selector.
func ResolveDiscipline(selector, language string) (Discipline, error) {
	switch selector {
	case "linguagens":
		switch language {
		case "ingles":
			return LinguagensIngles, nil
		case "espanhol":
			return LinguagensEspanhol, nil
		default:
			return "", ErrInvalidDiscipline
		}
	case string(Matematica), string(CienciasHumanas), string(CienciasNatureza),
		string(LinguagensIngles), string(LinguagensEspanhol):
		return Discipline(selector), nil
	default:
		return "", ErrInvalidDiscipline
	}
}

// Language returns the catalog language parameter for the discipline, or ""
// when the discipline has no language split.
func (d Discipline) Language() string {
	switch d {
	case LinguagensIngles:
		return "ingles"
	case LinguagensEspanhol:
		return "espanhol"
	default:
		return ""
	}
}

// Valid reports whether d is one of the closed discipline set.
func (d Discipline) Valid() bool {
	switch d {
	case Matematica, CienciasHumanas, CienciasNatureza, LinguagensIngles, LinguagensEspanhol:
		return true
	}
	return false
}
