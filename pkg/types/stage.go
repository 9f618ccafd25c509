// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the answerstream client:
// the pipeline stage enumeration, paper and citation records, the terminal
// query result, and configuration structs.
package types

// Stage is one of the four ordered pipeline phases a query passes through
// on the backend. Values match the wire protocol's stage identifiers.
type Stage string

const (
	StageEvaluation       Stage = "evaluation"
	StagePaperRetrieval   Stage = "paper_retrieval"
	StagePaperAnalysis    Stage = "paper_analysis"
	StageAnswerGeneration Stage = "answer_generation"
)

// stageOrder maps each stage to its position in the pipeline.
var stageOrder = map[Stage]int{
	StageEvaluation:       0,
	StagePaperRetrieval:   1,
	StagePaperAnalysis:    2,
	StageAnswerGeneration: 3,
}

// stageLabels are the human-readable progress descriptions shown while a
// stage is current.
var stageLabels = map[Stage]string{
	StageEvaluation:       "Evaluating question",
	StagePaperRetrieval:   "Retrieving papers",
	StagePaperAnalysis:    "Analyzing papers",
	StageAnswerGeneration: "Generating answer",
}

// Stages returns the pipeline stages in order.
func Stages() []Stage {
	return []Stage{StageEvaluation, StagePaperRetrieval, StagePaperAnalysis, StageAnswerGeneration}
}

// Known reports whether s is one of the four pipeline stages. Substage
// identifiers (e.g. "evaluation_complete") are not Stages.
func (s Stage) Known() bool {
	_, ok := stageOrder[s]
	return ok
}

// Before reports whether s comes earlier in the pipeline than o. Both
// stages must be known; unknown stages compare as not-before.
func (s Stage) Before(o Stage) bool {
	si, ok1 := stageOrder[s]
	oi, ok2 := stageOrder[o]
	return ok1 && ok2 && si < oi
}

// Label returns the progress description for the stage, or the raw stage
// string if it has no label.
func (s Stage) Label() string {
	if l, ok := stageLabels[s]; ok {
		return l
	}
	return string(s)
}
