// Package heartcrew is the root of a heart diagnosis and treatment crew: two
// LLM-backed doctors share a trained heart-condition classifier and a
// condition image viewer, and every consultation is recorded.
//
// The work is split across subpackages:
//
//	features     assemble model-ordered feature vectors from measurements
//	outcome      resolve class codes to labels and labels to image assets
//	classifier   demo, function and remote classifiers plus model artifacts
//	tools/heart  the predictor and image tools the diagnosis doctor calls
//	agent/core   the tool-calling chat agent loop
//	crew         the diagnose-then-treat pipeline and full consultations
//	history      consultation records, in memory or in Postgres
//	server/http  the HTTP API
//
// The heartcrew command in cmd/heartcrew wires them together.
package heartcrew
