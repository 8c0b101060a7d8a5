package cmd

import (
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"unsafelinks/pkg/clipboard"
	"unsafelinks/pkg/config"
	"unsafelinks/pkg/errors"
	"unsafelinks/pkg/logger"
	"unsafelinks/pkg/safelink"
	"unsafelinks/pkg/watcher"

	"github.com/spf13/cobra"
)

func newWatcher(cfg *config.Config, decoder *safelink.Decoder, wcfg watcher.Config) *watcher.Watcher {
	wcfg.Interval = cfg.Service.PollInterval
	return watcher.New(newClipboard(cfg), decoder, wcfg)
}

func runOnceURL(cmd *cobra.Command, cfg *config.Config, rawURL string) error {
	decoder := safelink.NewDecoder(cfg.SafeLinks.ExtraDomains...)
	res, err := newWatcher(cfg, decoder, watcher.Config{}).DecodeURL(rawURL)
	if err != nil {
		return clipboardError(err)
	}
	return reportOnce(cmd, res)
}

func runOnceClipboard(cmd *cobra.Command, cfg *config.Config) error {
	decoder := safelink.NewDecoder(cfg.SafeLinks.ExtraDomains...)
	res, err := newWatcher(cfg, decoder, watcher.Config{}).DecodeClipboard()
	if err != nil {
		return clipboardError(err)
	}
	return reportOnce(cmd, res)
}

func clipboardError(err error) error {
	if stderrors.Is(err, watcher.ErrWrite) {
		return errors.ClipboardError(errors.ErrMsgClipboardWrite, err)
	}
	return errors.ClipboardError(errors.ErrMsgClipboardRead, err)
}

func reportOnce(cmd *cobra.Command, res watcher.Result) error {
	if !res.Decoded {
		logger.Debug().Str("input", res.Input).Msg("not a SafeLink")
		printNothingDecoded(cmd.ErrOrStderr())
		return nil
	}
	logger.Info().Str("url", res.Output).Msg("decoded SafeLink")
	fmt.Fprintln(cmd.OutOrStdout(), res.Output)
	return nil
}

func runService(cmd *cobra.Command, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	decoder := safelink.NewDecoder(cfg.SafeLinks.ExtraDomains...)
	w := newWatcher(cfg, decoder, watcher.Config{
		OnDecode: func(res watcher.Result) {
			logger.Info().Str("url", res.Output).Msg("decoded SafeLink")
			printDecoded(out, res.Output)
		},
		OnError: func(err error) {
			// Images and files on the clipboard are routine.
			if stderrors.Is(err, watcher.ErrRead) && stderrors.Is(err, clipboard.ErrUnavailable) {
				logger.Debug().Err(err).Msg("no clipboard text")
				return
			}
			if stderrors.Is(err, watcher.ErrWrite) {
				logger.Error().Err(err).Msg("could not write decoded URL")
				return
			}
			logger.Warn().Err(err).Msg("clipboard poll failed")
		},
	})

	printBanner(out, decoder.Domains())
	logger.Debug().Dur("interval", cfg.Service.PollInterval).Msg("service started")

	if err := w.Run(ctx); err != nil {
		return errors.Wrap(err, "clipboard service failed")
	}

	printStopped(out)
	return nil
}
