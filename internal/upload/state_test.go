package upload_test

import (
	"errors"
	"testing"

	"github.com/alkime/scribe/internal/audio"
	"github.com/alkime/scribe/internal/upload"
	"github.com/stretchr/testify/assert"
)

func TestReduce(t *testing.T) {
	memo := audio.FromBytes("memo.mp3", []byte("memo"))
	call := audio.FromBytes("call.wav", []byte("call"))
	boom := errors.New("boom")

	idle := upload.State{}
	ready := upload.State{Status: upload.StatusReady, File: memo, HasFile: true}
	submitting := upload.State{Status: upload.StatusSubmitting, File: memo, HasFile: true}
	succeeded := upload.State{Status: upload.StatusSucceeded, File: memo, HasFile: true, Transcript: "hi"}
	failed := upload.State{Status: upload.StatusFailed, File: memo, HasFile: true, Err: boom}

	tests := []struct {
		name string
		from upload.State
		ev   upload.Event
		want upload.State
	}{
		{
			name: "select from idle",
			from: idle,
			ev:   upload.FileSelected{File: memo},
			want: ready,
		},
		{
			name: "select after success clears transcript",
			from: succeeded,
			ev:   upload.FileSelected{File: call},
			want: upload.State{Status: upload.StatusReady, File: call, HasFile: true},
		},
		{
			name: "select after failure clears error",
			from: failed,
			ev:   upload.FileSelected{File: call},
			want: upload.State{Status: upload.StatusReady, File: call, HasFile: true},
		},
		{
			name: "submit from idle records validation error",
			from: idle,
			ev:   upload.SubmitStarted{},
			want: upload.State{Err: upload.ErrNoFileSelected},
		},
		{
			name: "submit from ready",
			from: ready,
			ev:   upload.SubmitStarted{},
			want: submitting,
		},
		{
			name: "resubmit after failure clears error",
			from: failed,
			ev:   upload.SubmitStarted{},
			want: submitting,
		},
		{
			name: "resubmit after success clears transcript",
			from: succeeded,
			ev:   upload.SubmitStarted{},
			want: submitting,
		},
		{
			name: "submit while submitting is ignored",
			from: submitting,
			ev:   upload.SubmitStarted{},
			want: submitting,
		},
		{
			name: "success while submitting",
			from: submitting,
			ev:   upload.TranscriptionSucceeded{Transcript: "hi"},
			want: succeeded,
		},
		{
			name: "failure while submitting",
			from: submitting,
			ev:   upload.TranscriptionFailed{Err: boom},
			want: failed,
		},
		{
			name: "late success outside submitting is ignored",
			from: ready,
			ev:   upload.TranscriptionSucceeded{Transcript: "stale"},
			want: ready,
		},
		{
			name: "late failure outside submitting is ignored",
			from: succeeded,
			ev:   upload.TranscriptionFailed{Err: boom},
			want: succeeded,
		},
		{
			name: "cancel while submitting",
			from: submitting,
			ev:   upload.SubmitCancelled{},
			want: ready,
		},
		{
			name: "cancel outside submitting is ignored",
			from: idle,
			ev:   upload.SubmitCancelled{},
			want: idle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, upload.Reduce(tt.from, tt.ev))
		})
	}
}

func TestState_Accessors(t *testing.T) {
	var idle upload.State
	assert.Empty(t, idle.FileName())
	_, ok := idle.Result()
	assert.False(t, ok)
	assert.False(t, idle.Busy())

	done := upload.State{
		Status:     upload.StatusSucceeded,
		File:       audio.FromBytes("memo.mp3", nil),
		HasFile:    true,
		Transcript: "",
	}
	text, ok := done.Result()
	assert.True(t, ok, "an empty transcript is still a result")
	assert.Empty(t, text)
	assert.Equal(t, "memo.mp3", done.FileName())
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "Idle", upload.StatusIdle.String())
	assert.Equal(t, "Submitting", upload.StatusSubmitting.String())
	assert.Equal(t, "Unknown", upload.Status(42).String())
}
