package cli

var (
	Version   = ""
	CommitSHA = ""
)

// Globals defines global flags available to all commands.
type Globals struct {
	Telemetry bool   `help:"Show timing telemetry for operations."`
	Config    string `help:"Configuration file (default: compta.yaml in . or ~/.config/compta)." type:"path" short:"C"`
	Database  string `help:"SQLite database, overrides database.path." type:"path" env:"COMPTA_DATABASE_PATH"`
	LogLevel  string `help:"Log level (debug, info, warn, error), overrides log.level."`
	LogFormat string `help:"Log format (console, json), overrides log.format."`
}

type Commands struct {
	Globals

	Edit       EditCmd       `cmd:"" help:"Open the piece editor on a journal."`
	Serve      ServeCmd      `cmd:"" help:"Start the HTTP backend."`
	Import     ImportCmd     `cmd:"" help:"Import a dossier file into the database."`
	Check      CheckCmd      `cmd:"" help:"Validate the pieces of a dossier file without importing them."`
	Show       ShowCmd       `cmd:"" help:"Print a saved piece."`
	Search     SearchCmd     `cmd:"" help:"Search saved pieces."`
	Delete     DeleteCmd     `cmd:"" help:"Delete a saved piece."`
	NextNumber NextNumberCmd `cmd:"" name:"next-number" help:"Print the next free piece number of a journal."`
	Doctor     DoctorCmd     `cmd:"" help:"Doctor utilities for inspecting the configuration and the database."`
}

func versionString() string {
	version := Version
	if version == "" {
		version = "dev"
	}
	commitSHA := CommitSHA
	if commitSHA == "" {
		commitSHA = "local"
	}
	return version + " (" + commitSHA + ")"
}
