package domain

import (
	"fmt"
	"strings"
)

const sessionURIPrefix = "session://"

// parseSessionIDFromResourceURI extracts the session ID from a URI of the
// form session://{session_id}/{resourceType}. The resourceType parameter is
// the resource suffix (e.g., "sheets", "log", "combat").
func parseSessionIDFromResourceURI(uri, resourceType string) (string, error) {
	suffix := "/" + resourceType

	if !strings.HasPrefix(uri, sessionURIPrefix) {
		return "", fmt.Errorf("URI must start with %q", sessionURIPrefix)
	}
	if !strings.HasSuffix(uri, suffix) {
		return "", fmt.Errorf("URI must end with %q", suffix)
	}

	sessionID := strings.TrimPrefix(uri, sessionURIPrefix)
	sessionID = strings.TrimSuffix(sessionID, suffix)
	sessionID = strings.TrimSpace(sessionID)

	if sessionID == "" {
		return "", fmt.Errorf("session ID is required in URI")
	}
	if sessionID == "_" {
		return "", fmt.Errorf("session ID placeholder '_' is not a valid session ID")
	}

	return sessionID, nil
}

// parseSecretsResourceURI extracts the session and agent IDs from a URI of
// the form session://{session_id}/secrets/{agent_id}.
func parseSecretsResourceURI(uri string) (sessionID, agentID string, err error) {
	if !strings.HasPrefix(uri, sessionURIPrefix) {
		return "", "", fmt.Errorf("URI must start with %q", sessionURIPrefix)
	}

	path := strings.TrimPrefix(uri, sessionURIPrefix)
	parts := strings.Split(path, "/")
	if len(parts) != 3 || parts[1] != "secrets" {
		return "", "", fmt.Errorf("URI must look like session://{session_id}/secrets/{agent_id}")
	}

	sessionID = strings.TrimSpace(parts[0])
	agentID = strings.TrimSpace(parts[2])
	if sessionID == "" || sessionID == "_" {
		return "", "", fmt.Errorf("session ID is required in URI")
	}
	if agentID == "" || agentID == "_" {
		return "", "", fmt.Errorf("agent ID is required in URI")
	}

	return sessionID, agentID, nil
}
