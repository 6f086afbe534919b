// Package sample holds the per-input-file state passed from stage to stage.
package sample
