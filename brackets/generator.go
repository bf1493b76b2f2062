package brackets

type GenerateBracketParams struct {
	CategoryName string
	Participants []Participant
}

type BracketGenerator interface {
	GenerateBracket(params GenerateBracketParams) (*Plan, error)

	GetName() string
}
