package prompts

import (
	"strconv"

	"github.com/charmbracelet/huh"

	"anthemengine/internal/domain"
	"anthemengine/internal/service"
)

// RunSourceAddForm runs the interactive form for a new source connection.
// Fields already set on in are used as defaults.
func RunSourceAddForm(in *service.SourceInput, existing map[string]struct{}) error {
	if in.Driver == "" {
		in.Driver = string(domain.SourceDriverSQLite)
	}
	port := ""
	if in.Port > 0 {
		port = strconv.Itoa(in.Port)
	}

	driverOptions := make([]huh.Option[string], len(domain.Drivers))
	for i, d := range domain.Drivers {
		driverOptions[i] = huh.NewOption(string(d), string(d))
	}

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Connection name").
				Placeholder("e.g., crm_prod").
				Value(&in.Name).
				Validate(identifierValidator(existing)),
			huh.NewSelect[string]().
				Title("Driver").
				Options(driverOptions...).
				Value(&in.Driver),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Host").
				Description("Hostname, or the database file path for sqlite").
				Value(&in.Host).
				Validate(requiredValidator("host")),
			huh.NewInput().
				Title("Port").
				Placeholder("optional").
				Value(&port).
				Validate(portValidator),
			huh.NewInput().
				Title("Database").
				Placeholder("optional").
				Value(&in.Database),
			huh.NewInput().
				Title("Username").
				Placeholder("optional").
				Value(&in.Username),
			huh.NewInput().
				Title("Password").
				Placeholder("optional").
				EchoMode(huh.EchoModePassword).
				Value(&in.Password),
		),
	).WithTheme(Theme()).Run()
	if err != nil {
		return err
	}

	if port != "" {
		in.Port, _ = strconv.Atoi(port)
	}
	return nil
}
