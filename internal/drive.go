package internal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// driveListFields limits list responses to what Recording needs
const driveListFields = "nextPageToken, files(id, name, mimeType, size, createdTime)"

// Drive is a RecordingStore backed by the Google Drive v3 API
type Drive struct {
	service *drive.Service
}

// NewDrive authenticates with a service account credential file using the read-only scope
func NewDrive(ctx context.Context, credentialsFile string) (*Drive, error) {
	if !FileExists(credentialsFile) {
		return nil, fmt.Errorf("credentials file %s not found", credentialsFile)
	}

	return NewDriveWithOptions(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(drive.DriveReadonlyScope),
	)
}

// NewDriveWithOptions builds the store from explicit client options,
// e.g. an endpoint and HTTP client for a local server
func NewDriveWithOptions(ctx context.Context, opts ...option.ClientOption) (*Drive, error) {
	service, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating drive service: %w", err)
	}
	return &Drive{service: service}, nil
}

// DriveQuery builds the files.list query for non-trashed files of one type in a folder
func DriveQuery(folderID, mimeType string) string {
	return fmt.Sprintf("'%s' in parents and mimeType='%s' and trashed=false",
		escapeDriveQuery(folderID), escapeDriveQuery(mimeType))
}

// List returns every matching file in the folder, newest first as reported by Drive
func (d *Drive) List(ctx context.Context, folderID, mimeType string) ([]Recording, error) {
	var recordings []Recording

	call := d.service.Files.List().
		Q(DriveQuery(folderID, mimeType)).
		OrderBy("createdTime desc").
		PageSize(100).
		Fields(driveListFields).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true)

	err := call.Pages(ctx, func(page *drive.FileList) error {
		for _, f := range page.Files {
			rec, err := recordingFromDrive(f)
			if err != nil {
				return err
			}
			recordings = append(recordings, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("querying drive folder %s: %w", folderID, err)
	}

	return recordings, nil
}

// Open starts a media download of the file content
func (d *Drive) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	resp, err := d.service.Files.Get(id).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("requesting file %s: %w", id, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("drive returned %s for file %s", resp.Status, id)
	}
	return resp.Body, nil
}

func recordingFromDrive(f *drive.File) (Recording, error) {
	created, err := time.Parse(time.RFC3339, f.CreatedTime)
	if err != nil {
		return Recording{}, fmt.Errorf("parsing createdTime of %s: %w", f.Name, err)
	}
	return Recording{
		ID:          f.Id,
		Name:        f.Name,
		MimeType:    f.MimeType,
		Size:        f.Size,
		CreatedTime: created,
	}, nil
}

// escapeDriveQuery escapes single quotes and backslashes inside query string literals
func escapeDriveQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
