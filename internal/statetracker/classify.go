// Package statetracker classifies tools by read/write role, takes probe
// snapshots of server-visible state, diffs them, and infers
// producer-consumer dependency edges across a workflow's steps (§4.7).
package statetracker

import "regexp"

// Role is a tool's inferred read/write behavior.
type Role string

const (
	RoleReader  Role = "reader"
	RoleWriter  Role = "writer"
	RoleBoth    Role = "both"
	RoleUnknown Role = "unknown"
)

// StateType is one of the closed set of state-type tags a tool's name or
// description keyword family maps onto.
type StateType string

const (
	StateFiles     StateType = "files"
	StateDatabase  StateType = "database"
	StateUsers     StateType = "users"
	StateSessions  StateType = "sessions"
	StateCache     StateType = "cache"
	StateQueue     StateType = "queue"
	StateConfig    StateType = "config"
	StateResources StateType = "resources"
)

// Classification is the State Tracker's verdict for one tool.
type Classification struct {
	Role       Role
	Confidence float64
	StateTypes []StateType
}

var readerPattern = regexp.MustCompile(`(?i)^(get|read|list|fetch|query|search|find|show|view|check|describe|inspect)`)
var writerPattern = regexp.MustCompile(`(?i)^(create|add|insert|write|set|update|modify|delete|remove|drop|clear|reset|post|put|patch)`)

// probePattern additionally recognizes a reader as returning a corpus
// view rather than a single record.
var probePattern = regexp.MustCompile(`(?i)(^list_|^get_all_|dump_|snapshot_)`)

var stateTypeKeywords = map[StateType][]string{
	StateFiles:     {"file", "document", "attachment", "upload"},
	StateDatabase:  {"record", "row", "table", "database", "entry"},
	StateUsers:     {"user", "account", "member", "profile"},
	StateSessions:  {"session", "token", "login"},
	StateCache:     {"cache", "memo"},
	StateQueue:     {"queue", "job", "task", "message"},
	StateConfig:    {"config", "setting", "preference"},
	StateResources: {"resource", "project", "workspace", "item"},
}

// Classify infers role, confidence, and state types for one tool from its
// name and description (§4.7).
func Classify(name, description string) Classification {
	isReader := readerPattern.MatchString(name) || readerPattern.MatchString(description)
	isWriter := writerPattern.MatchString(name) || writerPattern.MatchString(description)

	var role Role
	var confidence float64
	switch {
	case isReader && isWriter:
		role, confidence = RoleBoth, 0.7
	case isReader:
		role, confidence = RoleReader, 0.8
	case isWriter:
		role, confidence = RoleWriter, 0.8
	default:
		role, confidence = RoleUnknown, 0.3
	}

	return Classification{Role: role, Confidence: confidence, StateTypes: inferStateTypes(name, description)}
}

// IsProbe reports whether a reader tool's name suggests it returns a
// corpus view suitable for snapshotting.
func IsProbe(c Classification, name string) bool {
	if c.Role != RoleReader && c.Role != RoleBoth {
		return false
	}
	return probePattern.MatchString(name)
}

func inferStateTypes(name, description string) []StateType {
	haystack := name + " " + description
	var out []StateType
	for _, st := range []StateType{StateFiles, StateDatabase, StateUsers, StateSessions, StateCache, StateQueue, StateConfig, StateResources} {
		for _, kw := range stateTypeKeywords[st] {
			if containsFold(haystack, kw) {
				out = append(out, st)
				break
			}
		}
	}
	return out
}

func containsFold(haystack, needle string) bool {
	return regexp.MustCompile(`(?i)` + regexp.QuoteMeta(needle)).MatchString(haystack)
}
