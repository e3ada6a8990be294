package metadata

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// Common album art filenames, checked in order
var artFilenames = []string{
	"folder.jpg", "folder.png",
	"cover.jpg", "cover.png",
	"album.jpg", "album.png",
	"front.jpg", "front.png",
	"Folder.jpg", "Folder.png",
	"Cover.jpg", "Cover.png",
}

// FindAlbumArt looks for album art in the track's directory or parent directory.
// Returns the path to the art file if found, or empty string if not found.
func FindAlbumArt(trackPath string) string {
	if trackPath == "" {
		return ""
	}

	dir := filepath.Dir(trackPath)
	for _, name := range artFilenames {
		artPath := filepath.Join(dir, name)
		if _, err := os.Stat(artPath); err == nil {
			return artPath
		}
	}

	// Artist folder
	parentDir := filepath.Dir(dir)
	for _, name := range []string{"folder.jpg", "folder.png", "Folder.jpg", "Folder.png"} {
		artPath := filepath.Join(parentDir, name)
		if _, err := os.Stat(artPath); err == nil {
			return artPath
		}
	}

	return ""
}

// ArtworkPath returns a file path holding the artwork for a track: embedded
// artwork is written once to cacheDir (keyed by content hash), otherwise the
// folder art is used. Returns "" when neither exists.
func ArtworkPath(cacheDir, trackPath string, md Metadata) (string, error) {
	if !md.HasArtwork() {
		return FindAlbumArt(trackPath), nil
	}
	if cacheDir == "" {
		return FindAlbumArt(trackPath), nil
	}

	sum := sha1.Sum(md.Artwork)
	name := hex.EncodeToString(sum[:]) + artExt(md.ArtworkMIME)
	dir := filepath.Join(cacheDir, "artwork")
	path := filepath.Join(dir, name)

	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create artwork cache: %w", err)
	}
	if err := os.WriteFile(path, md.Artwork, 0600); err != nil {
		return "", fmt.Errorf("failed to write artwork: %w", err)
	}
	return path, nil
}

func artExt(mime string) string {
	switch mime {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}
