package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Lifecycle (info)
		"Loaded %s: %s %dx%d, time base %s (session %s)":   "%s を読み込みました: %s %dx%d, タイムベース %s (セッション %s)",
		"Playback started":                                 "再生を開始しました",
		"Playback stopped":                                 "再生を停止しました",
		"Playback stopped after failure, session released": "失敗後に再生を停止し、セッションを解放しました",
		"Reloaded %s":                                      "%s を再読み込みしました",
		"Source changed, reloading %s":                     "ソースが変更されました。%s を再読み込みします",
		"Published %d frames over %d loops":                "%d フレームを %d ループで表示しました",
		"Interrupted, shutting down...":                    "中断されました。シャットダウン中...",
		"Serving metrics on %s":                            "メトリクスを %s で公開中",
		"Summary written to %s":                            "サマリーを %s に書き出しました",

		// Decoding (debug)
		"End of stream, restarting (loop %d)":                        "ストリーム終端。先頭から再開します (ループ %d)",
		"Session %s released":                                        "セッション %s を解放しました",
		"Opened %s with %s decoder":                                  "%s を %s デコーダで開きました",
		"Indexed %s: %d samples in %d tracks":                        "%s を解析しました: %d サンプル, %d トラック",
		"Falling back to libav for %s: %v":                           "%s は libav で開き直します: %v",
		"%s is too large to demux in memory, using libav":            "%s はメモリで解析するには大きすぎるため libav を使います",
		"ffmpeg not found, H.264 files will not use the mp4 backend": "ffmpeg が見つからないため H.264 ファイルには mp4 バックエンドを使いません",
		"Started ffmpeg decoder (pid %d)":                            "ffmpeg デコーダを起動しました (pid %d)",

		// Consumers
		"Window opened: %dx%d":    "ウィンドウを開きました: %dx%d",
		"Window closed":           "ウィンドウを閉じました",
		"Saved snapshot %d at %s": "スナップショット %d を保存しました (%s)",
		"Saved %d snapshots":      "%d 枚のスナップショットを保存しました",
		"Watching %s for changes": "%s の変更を監視しています",
		"Source changed: %s":      "ソースが変更されました: %s",

		// Warnings
		"Failed to release previous session: %v": "前のセッションの解放に失敗しました: %v",
		"Failed to release session: %v":          "セッションの解放に失敗しました: %v",
		"Failed to flush decoder: %v":            "デコーダのフラッシュに失敗しました: %v",
		"Failed to close decoder: %v":            "デコーダの終了に失敗しました: %v",
		"Failed to close window: %v":             "ウィンドウを閉じられませんでした: %v",
		"Failed to save source info: %v":         "ソース情報の保存に失敗しました: %v",
		"Failed to stop metrics server: %v":      "メトリクスサーバーの停止に失敗しました: %v",
		"Watching disabled: %v":                  "監視を無効にしました: %v",
		"Watch error: %v":                        "監視エラー: %v",
		"Failed to write summary: %v":            "サマリーの書き出しに失敗しました: %v",

		// Errors
		"Failed to load %s: %v":         "%s の読み込みに失敗しました: %v",
		"Playback failed: %v":           "再生に失敗しました: %v",
		"Playback ended with error: %v": "再生がエラーで終了しました: %v",
		"Reload failed: %v":             "再読み込みに失敗しました: %v",
	})
}
