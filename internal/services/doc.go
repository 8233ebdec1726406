// Package services defines the shared error taxonomy used by pipeline
// stages to classify failures.
package services
