// Package main provides localization for the vidloop CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Flag categories
		"Configuration": "設定",
		"Decoding":      "デコード",
		"Logging":       "ログ",
		"Monitoring":    "モニタリング",
		"Playback":      "再生",
		"Output":        "出力先",

		// Root command
		"Play a video file in a loop": "動画ファイルをループ再生",

		"vidloop decodes the video stream of a file and plays it in a loop, paced to its timestamps.": "vidloopは動画ファイルの映像ストリームをデコードし、タイムスタンプに合わせてループ再生します。",

		// Play command
		"Play a video file in a window": "動画ファイルをウィンドウで再生",

		"Open the file and show it in a window sized to the video. Close the window or press Escape to quit.": "ファイルを開き、動画と同じサイズのウィンドウに表示します。ウィンドウを閉じるかEscキーで終了します。",

		"Window refresh rate in ticks per second": "ウィンドウの更新レート（1秒あたりのティック数）",

		// Snapshot command
		"Save still images of a playing video": "再生中の動画の静止画を保存",

		"Play the file without a window and save the current frame at a fixed interval.": "ウィンドウなしでファイルを再生し、一定間隔で現在のフレームを保存します。",

		// Snapshot flags
		"Output directory for snapshots":              "スナップショットの出力ディレクトリ",
		"Time between snapshots":                      "スナップショットの間隔",
		"Number of snapshots (0 = until interrupted)": "スナップショットの枚数（0 = 中断されるまで）",
		"Snapshot width in pixels (0 = video width)":  "スナップショットの幅（ピクセル、0 = 動画の幅）",
		"Image format (png, jpeg)":                    "画像形式（png, jpeg）",
		"Do not draw the frame position on snapshots": "スナップショットに再生位置を描画しない",
		"TrueType font for the overlay":               "オーバーレイ用のTrueTypeフォント",

		"Write a Markdown summary of the run to this file": "実行結果のMarkdownサマリーをこのファイルに書き出す",

		// Probe command
		"Describe the video stream of a file": "ファイルの映像ストリームを表示",

		// Version command
		"Show version information": "バージョン情報を表示",
		"vidloop version %s":       "vidloop バージョン %s",

		// Global flags
		"YAML configuration file":                           "YAML設定ファイル",
		"Decoder backend (libav, mp4, auto)":                "デコーダのバックエンド（libav, mp4, auto）",
		"Path to the ffmpeg binary used by the mp4 backend": "mp4バックエンドが使うffmpegのパス",
		"Decoder threads (0 = automatic)":                   "デコーダのスレッド数（0 = 自動）",
		"Largest file the mp4 backend reads into memory":    "mp4バックエンドがメモリに読み込む最大ファイルサイズ",
		"Log level (debug, info, warn, error)":              "ログレベル（debug, info, warn, error）",
		"Log format (console, json)":                        "ログ形式（console, json）",
		"Suppress all log output":                           "すべてのログ出力を抑制",

		"Serve Prometheus metrics on this address (e.g. :9090)": "このアドレスでPrometheusメトリクスを公開（例: :9090）",

		// Watch flags
		"Reload the file when it changes":                "ファイルが変更されたら再読み込み",
		"Quiet period before a change triggers a reload": "変更から再読み込みまでの待機時間",

		// Results
		"Error: %v":             "エラー: %v",
		"Played for %s":         "%s 再生しました",
		"Snapshots saved to %s": "スナップショットを %s に保存しました",
	})
}
