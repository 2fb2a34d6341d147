// Package dirtree はディレクトリツリーのテキスト表示を提供する。
// デプロイ先でのファイル構成確認用の運用サブコマンドから使用する。
package dirtree

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Print はrootDir以下のディレクトリツリーをwに書き込む。
// ディレクトリには📁、ファイルには📄のマーカーを付け、
// 階層ごとに4スペースでインデントする。エントリは名前順。
// rootDirがディレクトリでない場合はエラーを返す。
func Print(w io.Writer, rootDir string) error {
	info, err := os.Stat(rootDir)
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", rootDir)
	}

	return printLevel(w, rootDir, 0)
}

// printLevel は1階層分のエントリを出力し、サブディレクトリに再帰する。
func printLevel(w io.Writer, dir string, depth int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	indent := strings.Repeat("    ", depth)
	for _, entry := range entries {
		if entry.IsDir() {
			if _, err := fmt.Fprintf(w, "%s📁 %s\n", indent, entry.Name()); err != nil {
				return err
			}
			if err := printLevel(w, filepath.Join(dir, entry.Name()), depth+1); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(w, "%s📄 %s\n", indent, entry.Name()); err != nil {
			return err
		}
	}

	return nil
}
