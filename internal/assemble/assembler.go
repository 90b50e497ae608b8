// Package assemble concatenates file contents into a token-budgeted bundle.
package assemble

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/temirov/ctxpack/internal/tokenizer"
	"github.com/temirov/ctxpack/internal/types"
	"github.com/temirov/ctxpack/internal/utils"
)

const (
	fileBlockFormat = "<file name=\"%s\" path=\"/%s\">\n%s\n</file>\n"

	warningBudgetExceededFormat = "Token limit of %d reached: %s and the files after it were not included."
	warningUnreadableFileFormat = "Skipped %s: %v"

	logMessageReadFailed     = "unable to read file"
	logMessageBudgetStop     = "token budget reached"
	logFieldPath             = "path"
	logFieldTokensUsed       = "tokens_used"
	logFieldMaxTokens        = "max_tokens"
	logFieldFileTokens       = "file_tokens"
	logFieldAlreadyUsedToken = "tokens_already_used"
)

// ErrBinaryContent reports a file whose bytes do not decode as text.
var ErrBinaryContent = errors.New("binary content")

// Result is the outcome of one assembly pass.
type Result struct {
	Text            string
	TokensUsed      int
	LimitReached    bool
	ExcludedFile    string
	FilesIncluded   int
	FilesUnreadable int
	Warnings        []string
}

// Assembler reads files in a deterministic order and wraps them in file blocks.
type Assembler struct {
	fileSystem afero.Fs
	counter    tokenizer.Counter
	logger     *zap.Logger
}

// NewAssembler constructs an Assembler. A nil file system selects the OS file system and
// a nil logger discards log output.
func NewAssembler(fileSystem afero.Fs, counter tokenizer.Counter, logger *zap.Logger) *Assembler {
	if fileSystem == nil {
		fileSystem = afero.NewOsFs()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{fileSystem: fileSystem, counter: counter, logger: logger}
}

type orderedFile struct {
	absolutePath string
	relativePath string
	name         string
	sortKey      string
}

// Assemble appends one block per file of contentSet, ordered by relative path, until the next
// block would push tokensAlreadyUsed plus the tokens used so far past maxTokens.
// Files that cannot be read or decoded are skipped and reported in Result.Warnings.
func (assembler *Assembler) Assemble(contentSet *types.ContentSet, entryMap *types.EntryMap, maxTokens int, tokensAlreadyUsed int) Result {
	var result Result
	if contentSet == nil || contentSet.Len() == 0 {
		return result
	}

	var builder strings.Builder
	for _, file := range orderFiles(contentSet, entryMap) {
		fileBytes, readError := assembler.read(file.absolutePath)
		if readError != nil {
			assembler.logger.Warn(logMessageReadFailed, zap.String(logFieldPath, file.absolutePath), zap.Error(readError))
			result.FilesUnreadable++
			result.Warnings = append(result.Warnings, fmt.Sprintf(warningUnreadableFileFormat, file.displayPath(), readError))
			continue
		}

		block := fmt.Sprintf(fileBlockFormat, file.name, file.relativePath, string(fileBytes))
		blockTokens, countError := assembler.counter.CountString(block)
		if countError != nil {
			assembler.logger.Warn(logMessageReadFailed, zap.String(logFieldPath, file.absolutePath), zap.Error(countError))
			result.FilesUnreadable++
			result.Warnings = append(result.Warnings, fmt.Sprintf(warningUnreadableFileFormat, file.displayPath(), countError))
			continue
		}

		if tokensAlreadyUsed+result.TokensUsed+blockTokens > maxTokens {
			assembler.logger.Info(logMessageBudgetStop,
				zap.String(logFieldPath, file.absolutePath),
				zap.Int(logFieldFileTokens, blockTokens),
				zap.Int(logFieldTokensUsed, result.TokensUsed),
				zap.Int(logFieldAlreadyUsedToken, tokensAlreadyUsed),
				zap.Int(logFieldMaxTokens, maxTokens),
			)
			result.LimitReached = true
			result.ExcludedFile = file.displayPath()
			result.Warnings = append(result.Warnings, fmt.Sprintf(warningBudgetExceededFormat, maxTokens, file.displayPath()))
			break
		}

		builder.WriteString(block)
		result.TokensUsed += blockTokens
		result.FilesIncluded++
	}
	result.Text = builder.String()
	return result
}

// read returns the bytes of absolutePath, rejecting content that is not text.
func (assembler *Assembler) read(absolutePath string) ([]byte, error) {
	if assembler.counter == nil {
		return nil, errors.New("nil tokenizer counter")
	}
	fileBytes, readError := afero.ReadFile(assembler.fileSystem, absolutePath)
	if readError != nil {
		return nil, readError
	}
	if utils.IsBinary(fileBytes) {
		return nil, ErrBinaryContent
	}
	return fileBytes, nil
}

// orderFiles sorts contentSet by each file's relative path, falling back to the absolute path
// for files missing from entryMap.
func orderFiles(contentSet *types.ContentSet, entryMap *types.EntryMap) []orderedFile {
	absolutePaths := contentSet.Paths()
	files := make([]orderedFile, 0, len(absolutePaths))
	for _, absolutePath := range absolutePaths {
		file := orderedFile{
			absolutePath: absolutePath,
			relativePath: filepath.ToSlash(strings.TrimPrefix(absolutePath, string(filepath.Separator))),
			name:         filepath.Base(absolutePath),
			sortKey:      absolutePath,
		}
		if entryMap != nil {
			if entry, found := entryMap.Get(absolutePath); found {
				file.relativePath = entry.RelativePath
				file.sortKey = entry.RelativePath
				if entry.Name != "" {
					file.name = entry.Name
				}
			}
		}
		files = append(files, file)
	}
	sort.SliceStable(files, func(left, right int) bool {
		if files[left].sortKey != files[right].sortKey {
			return files[left].sortKey < files[right].sortKey
		}
		return files[left].absolutePath < files[right].absolutePath
	})
	return files
}

func (file orderedFile) displayPath() string {
	if file.relativePath == "" {
		return file.name
	}
	return file.relativePath
}
