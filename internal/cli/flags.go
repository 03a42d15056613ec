package cli

// Flags holds all command-line flag values shared by the subcommands.
type Flags struct {
	CfgFile    string
	From       string
	To         string
	Sync       bool
	Provider   string
	Routing    string
	StorePath  string
	FieldsPath string
}

// NewFlags creates a new Flags instance with default values.
func NewFlags() *Flags {
	return &Flags{
		From: "en",
		Sync: true,
	}
}
