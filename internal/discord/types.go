// Package discord holds the interaction wire types and the REST client used
// to complete deferred slash commands.
package discord

// Interaction request types.
const (
	InteractionPing               = 1
	InteractionApplicationCommand = 2
)

// Interaction response types.
const (
	ResponsePong            = 1
	ResponseChannelMessage  = 4
	ResponseDeferredMessage = 5
)

// MessageFlagEphemeral makes a response visible only to the invoking user.
const MessageFlagEphemeral = 64

// OptionTypeString is the STRING option type in the command schema.
const OptionTypeString = 3

// Interaction is an inbound webhook payload.
type Interaction struct {
	ID            string       `json:"id"`
	Type          int          `json:"type"`
	ApplicationID string       `json:"application_id"`
	Token         string       `json:"token"`
	Data          *CommandData `json:"data,omitempty"`
}

// CommandData is the slash-command portion of an interaction.
type CommandData struct {
	Name    string   `json:"name"`
	Options []Option `json:"options,omitempty"`
}

// Option is one named argument of an invoked command.
type Option struct {
	Name  string `json:"name"`
	Type  int    `json:"type,omitempty"`
	Value any    `json:"value,omitempty"`
}

// StringOption returns the named option's string value. The second return
// is false when the option is absent or not a string.
func (d *CommandData) StringOption(name string) (string, bool) {
	if d == nil {
		return "", false
	}
	for _, o := range d.Options {
		if o.Name == name {
			s, ok := o.Value.(string)
			return s, ok
		}
	}
	return "", false
}

// Response is a synchronous interaction response.
type Response struct {
	Type int           `json:"type"`
	Data *ResponseData `json:"data,omitempty"`
}

// ResponseData is the message portion of a Response.
type ResponseData struct {
	Content string `json:"content,omitempty"`
	Flags   int    `json:"flags,omitempty"`
}

// Command describes one slash command for bulk registration.
type Command struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Options     []CommandOption `json:"options,omitempty"`
}

// CommandOption declares one argument of a registered command.
type CommandOption struct {
	Type        int    `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required,omitempty"`
}
