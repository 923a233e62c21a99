package manifest

import (
	"strings"

	"botfleet/internal/api"
)

// Label keys. They are mirrored onto the deployment and its pod template so
// pods can be matched to bots by label.
const (
	LabelApp        = "app"
	LabelLanguage   = "language"
	LabelVersion    = "version"
	LabelManagedBy  = "managed-by"
	LabelUserID     = "user-id"
	LabelWorkflowID = "workflow-id"
)

// Annotation keys.
const (
	AnnotationName         = "botfleet.io/name"
	AnnotationStartCommand = "botfleet.io/start-command"
	AnnotationCodeChecksum = "botfleet.io/code-sha256"
	AnnotationRestartedAt  = "botfleet.io/restartedAt"
)

// UnknownUser is the user-id label value of bots deployed without an owner.
const UnknownUser = "unknown"

const botPrefix = "bot-"

// Slugify derives the bot id from its display name: lowercase, every rune
// outside [a-z0-9] replaced by "-", prefixed with "bot-". An input that is
// already an id is returned unchanged, so Slugify is idempotent.
func Slugify(name string) string {
	var b strings.Builder
	b.Grow(len(name) + len(botPrefix))
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('-')
		}
	}
	slug := b.String()
	if strings.HasPrefix(slug, botPrefix) {
		return slug
	}
	return botPrefix + slug
}

// Labels returns the label set of a bot.
func Labels(id string, cfg api.BotConfig, managedBy string) map[string]string {
	userID := cfg.UserID
	if userID == "" {
		userID = UnknownUser
	}
	labels := map[string]string{
		LabelApp:       id,
		LabelLanguage:  cfg.Language,
		LabelVersion:   cfg.Version,
		LabelManagedBy: managedBy,
		LabelUserID:    userID,
	}
	if cfg.WorkflowID != "" {
		labels[LabelWorkflowID] = cfg.WorkflowID
	}
	return labels
}

// SelectorLabels returns the labels that identify the pods of a bot.
func SelectorLabels(id string) map[string]string {
	return map[string]string{LabelApp: id}
}

// CodeConfigMapName is the name of the object holding a bot's code bundle.
func CodeConfigMapName(id string) string {
	return id + "-code"
}
