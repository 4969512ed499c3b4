package tele

import (
	"context"

	"github.com/avdberg/p1bridge/log2"
)

type Transporter interface {
	Init(ctx context.Context, log *log2.Log, teleConfig Config) error
	CloseTele()
	SendState(payload []byte) bool
	SendError(payload []byte) bool
}
