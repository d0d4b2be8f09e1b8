package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/codebuildervaibhav/voice-clipboard/internal/types"
)

const folderMimeType = "application/vnd.google-apps.folder"

// DriveArchive uploads records to a dated folder tree in Google Drive:
// <folder>/2025/01/23/
type DriveArchive struct {
	service    *drive.Service
	folderName string
	folderID   string
}

// NewDriveArchive authorizes against Google Drive and resolves the root folder.
// Without a cached token the user is asked for an authorization code on stdin.
func NewDriveArchive(ctx context.Context, credentialsFile, tokenFile, folderName string) (*DriveArchive, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	client, err := getClient(ctx, config, tokenFile)
	if err != nil {
		return nil, err
	}

	srv, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Drive service: %w", err)
	}

	da := &DriveArchive{
		service:    srv,
		folderName: folderName,
	}
	if err := da.ensureFolder(ctx); err != nil {
		return nil, err
	}

	return da, nil
}

// getClient loads the cached token or runs the interactive flow and caches the result
func getClient(ctx context.Context, config *oauth2.Config, tokenFile string) (*http.Client, error) {
	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		tok, err = getTokenFromWeb(ctx, config)
		if err != nil {
			return nil, err
		}
		if err := saveToken(tokenFile, tok); err != nil {
			return nil, err
		}
	}
	return config.Client(ctx, tok), nil
}

func getTokenFromWeb(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Go to the following link in your browser:\n%v\n", authURL)
	fmt.Print("Enter authorization code: ")

	var authCode string
	if _, err := fmt.Scan(&authCode); err != nil {
		return nil, fmt.Errorf("unable to read authorization code: %w", err)
	}

	tok, err := config.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve token from web: %w", err)
	}
	return tok, nil
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

func saveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// Name identifies the archiver in logs
func (da *DriveArchive) Name() string { return "drive" }

// Archive uploads the record text and metadata
func (da *DriveArchive) Archive(ctx context.Context, rec types.Record) error {
	folderID, err := da.ensureDateFolder(ctx, rec)
	if err != nil {
		return err
	}

	base := archiveBaseName(rec)

	txtFile := &drive.File{
		Name:    base + ".txt",
		Parents: []string{folderID},
	}
	if _, err := da.service.Files.Create(txtFile).Media(strings.NewReader(rec.Text)).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to upload transcript: %w", err)
	}

	metaJSON, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	metaFile := &drive.File{
		Name:    base + "_meta.json",
		Parents: []string{folderID},
	}
	if _, err := da.service.Files.Create(metaFile).Media(bytes.NewReader(metaJSON)).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to upload metadata: %w", err)
	}

	return nil
}

func (da *DriveArchive) ensureFolder(ctx context.Context) error {
	id, err := da.findOrCreateFolder(ctx, da.folderName, "")
	if err != nil {
		return err
	}
	da.folderID = id
	return nil
}

// ensureDateFolder creates nested year/month/day folders
func (da *DriveArchive) ensureDateFolder(ctx context.Context, rec types.Record) (string, error) {
	parentID := da.folderID
	for _, name := range datedPath(rec.Timestamp) {
		id, err := da.findOrCreateFolder(ctx, name, parentID)
		if err != nil {
			return "", err
		}
		parentID = id
	}
	return parentID, nil
}

// findOrCreateFolder finds or creates a folder. An empty parentID searches everywhere.
func (da *DriveArchive) findOrCreateFolder(ctx context.Context, name, parentID string) (string, error) {
	r, err := da.service.Files.List().Q(folderQuery(name, parentID)).Spaces("drive").Fields("files(id)").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to search for folder %s: %w", name, err)
	}
	if len(r.Files) > 0 {
		return r.Files[0].Id, nil
	}

	folder := &drive.File{
		Name:     name,
		MimeType: folderMimeType,
	}
	if parentID != "" {
		folder.Parents = []string{parentID}
	}

	file, err := da.service.Files.Create(folder).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create folder %s: %w", name, err)
	}
	return file.Id, nil
}

func folderQuery(name, parentID string) string {
	q := fmt.Sprintf("name='%s' and mimeType='%s' and trashed=false", escapeQuery(name), folderMimeType)
	if parentID != "" {
		q += fmt.Sprintf(" and '%s' in parents", escapeQuery(parentID))
	}
	return q
}

func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
