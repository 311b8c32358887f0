package semantic

// ParsingError is raised when the project graph cannot be turned into a
// valid semantic manifest.
type ParsingError struct {
	Msg string
}

func (e *ParsingError) Error() string {
	return "Parsing Error: " + e.Msg
}
