package capture

import (
	"github.com/capy-discord/capy/pkg/discord"
)

// ExtractOptions flattens the interaction payload into a map of plain
// values. Slash command options are keyed by their dotted sub command
// path; components contribute custom_id and values; modal fields are
// keyed by their custom id.
func ExtractOptions(i *discord.Interaction) map[string]any {
	options := make(map[string]any)
	if i == nil || i.Data == nil {
		return options
	}
	data := i.Data

	flattenOptions(options, "", data.Options)

	if data.CustomID != "" {
		options["custom_id"] = data.CustomID
	}

	if data.Values != nil {
		values := make([]any, len(data.Values))
		for idx, v := range data.Values {
			values[idx] = v
		}
		options["values"] = values
	}

	for _, row := range data.Components {
		for _, component := range row.Components {
			if component.CustomID == "" || component.Value == nil {
				continue
			}
			options[component.CustomID] = NormalizeValue(component.Value)
		}
	}

	return options
}

// flattenOptions walks nested sub commands and groups. Options without
// children are leaves stored under their full path.
func flattenOptions(out map[string]any, prefix string, opts []discord.Option) {
	for _, opt := range opts {
		path := opt.Name
		if prefix != "" {
			path = prefix + "." + opt.Name
		}
		if len(opt.Options) > 0 {
			flattenOptions(out, path, opt.Options)
			continue
		}
		if opt.Type == discord.OptionSubCommand || opt.Type == discord.OptionSubCommandGroup {
			continue
		}
		out[path] = NormalizeValue(opt.Value)
	}
}

// NormalizeValue reduces references to their ids and walks slices and maps.
// Other values are returned unchanged.
func NormalizeValue(v any) any {
	switch val := v.(type) {
	case discord.Reference:
		return val.ID
	case *discord.Reference:
		if val == nil {
			return nil
		}
		return val.ID
	case []any:
		out := make([]any, len(val))
		for idx, item := range val {
			out[idx] = NormalizeValue(item)
		}
		return out
	case []discord.Reference:
		out := make([]any, len(val))
		for idx, ref := range val {
			out[idx] = ref.ID
		}
		return out
	case []string:
		out := make([]any, len(val))
		for idx, s := range val {
			out[idx] = s
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = NormalizeValue(item)
		}
		return out
	default:
		return v
	}
}
