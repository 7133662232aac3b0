package services

import (
	"fmt"
	"strings"

	"github.com/Dosada05/courtside/models"
	"github.com/Dosada05/courtside/storage"
)

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func populateTournamentLogoURL(tournament *models.Tournament, uploader storage.FileUploader) {
	if tournament == nil || uploader == nil {
		return
	}
	if tournament.LogoKey != nil && *tournament.LogoKey != "" {
		url := uploader.GetPublicURL(*tournament.LogoKey)
		if url != "" {
			tournament.LogoURL = &url
		}
	}
}

func extensionFromContentType(contentType string) (string, error) {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/gif":
		return ".gif", nil
	case "image/webp":
		return ".webp", nil
	case "image/svg+xml":
		return ".svg", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrLogoInvalidContentType, contentType)
	}
}

func validBracketType(t models.BracketType) bool {
	switch t {
	case models.BracketSingleElimination, models.BracketDoubleElimination, models.BracketRoundRobin:
		return true
	}
	return false
}

func trimmedName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}
