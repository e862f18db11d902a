// Package firebase connects to Firebase Admin for federated sign-in.
package firebase

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

var ErrNoCredentials = errors.New("firebase credentials path not provided")

// App bundles the Admin SDK app with the Auth client that verifies the ID
// tokens presented to POST /auth/firebase.
type App struct {
	FirebaseApp *firebase.App
	AuthClient  *auth.Client
}

// InitFirebase builds the app from a service account file. A missing or
// unreadable file is reported by NewApp, which loads the credentials eagerly.
func InitFirebase(ctx context.Context, credentialsPath string, extra ...option.ClientOption) (*App, error) {
	if credentialsPath == "" {
		return nil, ErrNoCredentials
	}
	opts := append([]option.ClientOption{option.WithCredentialsFile(credentialsPath)}, extra...)

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app from %s: %w", credentialsPath, err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth client: %w", err)
	}
	return &App{FirebaseApp: app, AuthClient: client}, nil
}
