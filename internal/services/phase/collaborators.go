package phase

import "github.com/mcoot/arenasession/internal/model"

// SceneLoader switches every participant to another scene
type SceneLoader interface {
	LoadScene(name string) error
}

// Notifier delivers notifications to clients. No clients means everyone.
type Notifier interface {
	Notify(n model.Notification, clients ...model.ClientID)
}
