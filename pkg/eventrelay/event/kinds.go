package event

// Built-in event type keys.
const (
	TypeProfileIdentified   Type = "profile_identified"
	TypeScreenViewed        Type = "screen_viewed"
	TypePushTokenRegistered Type = "push_token_registered"
	TypeMessageShown        Type = "message_shown"
	TypeMessageClicked      Type = "message_clicked"
	TypeMessageDismissed    Type = "message_dismissed"
	TypeAppLaunched         Type = "app_launched"
)

// ProfileIdentified is emitted when the current profile gains an identity.
type ProfileIdentified struct {
	ProfileID  string `json:"profile_id"`
	ExternalID string `json:"external_id,omitempty"`
	Email      string `json:"email,omitempty"`
}

// EventType implements Payload.
func (ProfileIdentified) EventType() Type { return TypeProfileIdentified }

// ScreenViewed is emitted when a named screen becomes visible.
type ScreenViewed struct {
	Name string `json:"name"`
}

// EventType implements Payload.
func (ScreenViewed) EventType() Type { return TypeScreenViewed }

// PushTokenRegistered carries a device push token.
type PushTokenRegistered struct {
	Token       string `json:"token"`
	Environment string `json:"environment,omitempty"`
}

// EventType implements Payload.
func (PushTokenRegistered) EventType() Type { return TypePushTokenRegistered }

// MessageShown is emitted when an in-app message is presented.
type MessageShown struct {
	MessageID  string `json:"message_id"`
	CampaignID string `json:"campaign_id,omitempty"`
}

// EventType implements Payload.
func (MessageShown) EventType() Type { return TypeMessageShown }

// MessageClicked is emitted when a message action is tapped.
type MessageClicked struct {
	MessageID string `json:"message_id"`
	ActionURL string `json:"action_url,omitempty"`
}

// EventType implements Payload.
func (MessageClicked) EventType() Type { return TypeMessageClicked }

// MessageDismissed is emitted when a message is closed without action.
type MessageDismissed struct {
	MessageID string `json:"message_id"`
}

// EventType implements Payload.
func (MessageDismissed) EventType() Type { return TypeMessageDismissed }

// AppLaunched is emitted on every cold start.
type AppLaunched struct {
	LaunchCount int `json:"launch_count"`
}

// EventType implements Payload.
func (AppLaunched) EventType() Type { return TypeAppLaunched }

// Compile-time interface checks.
var (
	_ Payload = ProfileIdentified{}
	_ Payload = ScreenViewed{}
	_ Payload = PushTokenRegistered{}
	_ Payload = MessageShown{}
	_ Payload = MessageClicked{}
	_ Payload = MessageDismissed{}
	_ Payload = AppLaunched{}
)

// registerBuiltins adds every built-in kind. Adding a kind above without
// listing it here leaves it unhydrated; TestBuiltinRegistryComplete guards this.
func registerBuiltins(r *Registry) {
	MustRegister[ProfileIdentified](r, "profile identified by external id or email")
	MustRegister[ScreenViewed](r, "named screen became visible")
	MustRegister[PushTokenRegistered](r, "device push token registered")
	MustRegister[MessageShown](r, "in-app message presented")
	MustRegister[MessageClicked](r, "in-app message action tapped")
	MustRegister[MessageDismissed](r, "in-app message dismissed")
	MustRegister[AppLaunched](r, "application cold start")
}
