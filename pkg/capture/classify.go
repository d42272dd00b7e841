package capture

import (
	"errors"
	"reflect"

	"github.com/capy-discord/capy/pkg/analytics"
	"github.com/capy-discord/capy/pkg/discord"
)

// Interaction categories.
const (
	CategorySlashCommand = "slash_command"
	CategoryButton       = "button"
	CategoryDropdown     = "dropdown"
	CategoryComponent    = "component"
	CategoryModal        = "modal"
	CategoryAutocomplete = "autocomplete"
	CategoryUnknown      = "unknown"
)

// UnknownCommand names a failure whose command could not be determined.
const UnknownCommand = "unknown"

// Category maps an interaction to its coarse category. Component
// interactions are refined by their component type.
func Category(i *discord.Interaction) string {
	switch i.Type {
	case discord.InteractionApplicationCommand:
		return CategorySlashCommand
	case discord.InteractionMessageComponent:
		if i.Data != nil {
			switch i.Data.ComponentType {
			case discord.ComponentButton:
				return CategoryButton
			case discord.ComponentSelectMenu:
				return CategoryDropdown
			}
		}
		return CategoryComponent
	case discord.InteractionModalSubmit:
		return CategoryModal
	case discord.InteractionApplicationCommandAutocomplete:
		return CategoryAutocomplete
	default:
		return CategoryUnknown
	}
}

// CommandName returns the attached command's name, falling back to the
// component or modal custom id. ok is false when neither is present.
func CommandName(i *discord.Interaction) (name string, ok bool) {
	if i.Command != nil && i.Command.Name != "" {
		return i.Command.Name, true
	}
	if i.Data != nil && i.Data.CustomID != "" {
		return i.Data.CustomID, true
	}
	return "", false
}

// ClassifyFailure strips one command invocation wrapper from err and
// returns the failure status and the concrete type name of the cause.
func ClassifyFailure(err error) (status, errorType string) {
	cause := discord.Cause(err)
	status = analytics.StatusInternalError
	if discord.IsUserFriendly(cause) {
		status = analytics.StatusUserError
	}
	return status, TypeName(cause)
}

// TypeName returns the name of v's concrete type with pointer
// indirection removed, e.g. "errorString" for errors.New values.
func TypeName(v any) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return "nil"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if name := t.Name(); name != "" {
		return name
	}
	return t.String()
}

// failureCommand picks the command a failure belongs to.
func failureCommand(i *discord.Interaction, err error) string {
	if i != nil && i.Command != nil && i.Command.Name != "" {
		return i.Command.Name
	}
	var invoke *discord.CommandInvokeError
	if errors.As(err, &invoke) && invoke.Command != "" {
		return invoke.Command
	}
	return UnknownCommand
}
