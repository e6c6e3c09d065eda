package models

import "errors"

// ErrInsufficientData means there are too few labeled or completed
// examples to train a model worth publishing. Non-fatal: callers skip
// the training run and keep the active artifacts.
var ErrInsufficientData = errors.New("not enough samples to train")
