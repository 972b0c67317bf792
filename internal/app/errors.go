package service

import "errors"

// Sentinel kinds for service errors.
var (
	// ErrNotStarted reports use of the service before Start.
	ErrNotStarted = errors.New("service not started")
	// ErrUnknownQuestion reports a question id absent from the roster.
	ErrUnknownQuestion = errors.New("unknown question")
	// ErrUnknownRound reports a round ref absent from the roster.
	ErrUnknownRound = errors.New("unknown round")
	// ErrInvalidParticipant reports a malformed or unknown participant
	// reference.
	ErrInvalidParticipant = errors.New("invalid participant")
)
