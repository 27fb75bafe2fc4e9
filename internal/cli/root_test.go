package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/odoucet/epub-translator/internal/domain"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCode(nil))
	assert.Equal(t, ExitRightsBlock, ExitCode(&domain.RightsBlockedError{Scheme: "Adobe ADEPT"}))
	assert.Equal(t, ExitRightsBlock,
		ExitCode(fmt.Errorf("translate: %w", &domain.RightsBlockedError{Scheme: "Readium LCP"})))
	assert.Equal(t, ExitIncomplete, ExitCode(fmt.Errorf("run: %w", domain.ErrIncomplete)))
	assert.Equal(t, ExitUsage, ExitCode(errors.New("flag parsing failed")))
	assert.Equal(t, ExitUsage, ExitCode(domain.ErrWorkspaceLocked))
}
