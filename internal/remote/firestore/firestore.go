package firestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	ports "farmtrack/internal/remote"

	gfirestore "google.golang.org/api/firestore/v1"
	goption "google.golang.org/api/option"
)

// Client mirrors local documents into Cloud Firestore under
// users/{userID}/{collection}/{docID}. The document body is stored as a
// single JSON string field so the remote copy stays byte-faithful to the
// local one.
type Client struct {
	svc       *gfirestore.Service
	projectID string
	database  string
}

// Ensure interface conformance
var (
	_ ports.DocumentWriter  = (*Client)(nil)
	_ ports.DocumentDeleter = (*Client)(nil)
	_ ports.DocumentMirror  = (*Client)(nil)
)

// NewFromEnv creates a Firestore client using environment variables.
// Required: FIRESTORE_PROJECT_ID
// Optional: FIRESTORE_DATABASE (default "(default)"),
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS for auth.
func NewFromEnv(ctx context.Context) (*Client, error) {
	projectID := strings.TrimSpace(os.Getenv("FIRESTORE_PROJECT_ID"))
	if projectID == "" {
		return nil, errors.New("missing FIRESTORE_PROJECT_ID")
	}

	database := strings.TrimSpace(os.Getenv("FIRESTORE_DATABASE"))
	if database == "" {
		database = "(default)"
	}

	svc, err := newFirestoreService(ctx)
	if err != nil {
		return nil, fmt.Errorf("firestore service: %w", err)
	}

	return &Client{
		svc:       svc,
		projectID: projectID,
		database:  database,
	}, nil
}

// newFirestoreService initializes the Firestore REST service using Service
// Account credentials. Uses GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newFirestoreService(ctx context.Context) (*gfirestore.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.InfoContext(ctx, "Creating Firestore service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gfirestore.DatastoreScope)

	service, err := gfirestore.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gfirestore.DatastoreScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create firestore service: %w", err)
	}

	return service, nil
}

// documentName builds the fully qualified resource name for a document.
func (c *Client) documentName(userID, collection, docID string) string {
	return fmt.Sprintf("projects/%s/databases/%s/documents/users/%s/%s/%s",
		c.projectID, c.database, userID, collection, docID)
}

// PutDocument creates or overwrites the remote copy of a document.
func (c *Client) PutDocument(ctx context.Context, userID, collection, docID string, body []byte) error {
	name := c.documentName(userID, collection, docID)

	doc := &gfirestore.Document{
		Fields: map[string]gfirestore.Value{
			"body": {StringValue: string(body)},
			"mirroredAt": {
				TimestampValue: time.Now().UTC().Format(time.RFC3339),
			},
		},
	}

	_, err := c.svc.Projects.Databases.Documents.Patch(name, doc).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("patch document %s: %w", name, err)
	}

	slog.InfoContext(ctx, "Mirrored document to Firestore",
		"user", userID,
		"collection", collection,
		"doc_id", docID,
		"body_size", len(body))

	return nil
}

// DeleteDocument removes the remote copy of a document. Deleting a document
// that no longer exists remotely is not an error.
func (c *Client) DeleteDocument(ctx context.Context, userID, collection, docID string) error {
	name := c.documentName(userID, collection, docID)

	_, err := c.svc.Projects.Databases.Documents.Delete(name).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("delete document %s: %w", name, err)
	}

	slog.InfoContext(ctx, "Deleted mirrored document from Firestore",
		"user", userID,
		"collection", collection,
		"doc_id", docID)

	return nil
}
