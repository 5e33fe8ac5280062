package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/examvault/internal/client/client"
	"github.com/dmitrijs2005/examvault/internal/common"
	"github.com/dmitrijs2005/examvault/internal/filex"
)

var errAborted = errors.New("aborted")

// argOrPrompt returns args[0] when present and asks for the value otherwise.
func (a *App) argOrPrompt(args []string, prompt string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	v, err := GetSimpleText(a.reader, prompt, a.out)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", errAborted
	}
	return v, nil
}

// report prints a user-facing message for err and returns it unchanged.
func report(err error) error {
	switch {
	case err == nil:
	case errors.Is(err, errAborted):
		log.Println("Aborted")
	case errors.Is(err, client.ErrUnauthorized):
		log.Println("Invalid password")
	case errors.Is(err, client.ErrNotFound):
		log.Println("File not found")
	case errors.Is(err, client.ErrUnavailable):
		log.Println("Unable to connect to server. Please check your connection.")
	default:
		log.Printf("Error: %s", err.Error())
	}
	return err
}

func (a *App) Health(ctx context.Context, _ []string) error {
	h, err := a.client.Health(ctx)
	if err != nil {
		a.setMode(ModeOffline)
		return report(err)
	}
	a.setMode(ModeOnline)
	fmt.Fprintf(a.out, "%s: %s (%s)\n", h.Status, h.Message, h.Timestamp)
	return nil
}

func (a *App) List(ctx context.Context, _ []string) error {
	files, err := a.client.List(ctx)
	if err != nil {
		return report(err)
	}
	if len(files) == 0 {
		fmt.Fprintln(a.out, "No files uploaded yet")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILE\tSUBJECT\tEXAM DATE\tSIZE\tUPLOADED")
	for _, f := range files {
		uploaded := ""
		if t := f.UploadedAt(); !t.IsZero() {
			uploaded = t.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			f.FileID, f.OriginalFilename, f.Subject, f.ExamDate, FormatFileSize(f.FileSize), uploaded)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d file(s)\n", len(files))
	return nil
}

// readNewPassword asks twice, since a lost upload password cannot be
// recovered.
func (a *App) readNewPassword() ([]byte, error) {
	pw, err := getPassword(a.out)
	if err != nil {
		return nil, err
	}
	if len(pw) == 0 {
		return nil, errAborted
	}
	fmt.Fprintln(a.out, "Repeat to confirm.")
	again, err := getPassword(a.out)
	defer common.WipeByteArray(again)
	if err != nil {
		common.WipeByteArray(pw)
		return nil, err
	}
	if !bytes.Equal(pw, again) {
		common.WipeByteArray(pw)
		return nil, errors.New("passwords do not match")
	}
	return pw, nil
}

func (a *App) Upload(ctx context.Context, args []string) error {
	path, err := a.argOrPrompt(args, "Path to the document (.pdf, .doc, .docx, .txt, .rtf)")
	if err != nil {
		return report(err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := common.AllowedExtensions[ext]; !ok {
		return report(fmt.Errorf("extension %q is not allowed", ext))
	}

	f, err := os.Open(path)
	if err != nil {
		return report(err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return report(err)
	}
	if st.Size() > common.MaxUploadSize {
		return report(fmt.Errorf("file is %s, limit is %s", FormatFileSize(st.Size()), FormatFileSize(common.MaxUploadSize)))
	}

	subject, err := GetSimpleText(a.reader, "Subject", a.out)
	if err != nil {
		return report(err)
	}
	examDate, err := GetSimpleText(a.reader, "Exam date (YYYY-MM-DD, empty for today)", a.out)
	if err != nil {
		return report(err)
	}

	pw, err := a.readNewPassword()
	if err != nil {
		return report(err)
	}
	defer common.WipeByteArray(pw)

	res, err := a.client.Upload(ctx, client.UploadRequest{
		Filename: filepath.Base(path),
		Subject:  subject,
		ExamDate: examDate,
		Password: pw,
		Content:  f,
	})
	if err != nil {
		return report(err)
	}

	fmt.Fprintf(a.out, "%s\nID: %s (%s)\n", res.Message, res.FileID, FormatFileSize(res.FileSize))
	return nil
}

func (a *App) Verify(ctx context.Context, args []string) error {
	id, err := a.argOrPrompt(args, "Enter file id to verify")
	if err != nil {
		return report(err)
	}
	pw, err := getPassword(a.out)
	if err != nil {
		return report(err)
	}
	defer common.WipeByteArray(pw)

	info, err := a.client.Verify(ctx, id, pw)
	if err != nil {
		return report(err)
	}
	fmt.Fprintf(a.out, "Password is correct\n%s | %s | %s | %s\n",
		info.OriginalFilename, info.Subject, info.ExamDate, FormatFileSize(info.FileSize))
	return nil
}

// downloadTarget picks a path in dir for the server-suggested name,
// falling back to the file id.
func downloadTarget(dir, suggested, id string) string {
	name := filepath.Base(suggested)
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = id
	}
	return filepath.Join(dir, name)
}

func (a *App) Download(ctx context.Context, args []string) error {
	id, err := a.argOrPrompt(args, "Enter file id to download")
	if err != nil {
		return report(err)
	}
	pw, err := getPassword(a.out)
	if err != nil {
		return report(err)
	}
	defer common.WipeByteArray(pw)

	dir, err := GetSimpleText(a.reader, "Save to directory (empty for current)", a.out)
	if err != nil {
		return report(err)
	}
	if dir == "" {
		dir = "."
	}
	if dir, err = filex.EnsureDir(dir); err != nil {
		return report(err)
	}

	var buf bytes.Buffer
	name, err := a.client.Download(ctx, id, pw, &buf)
	if err != nil {
		return report(err)
	}
	data := buf.Bytes()
	defer common.WipeByteArray(data)

	target := downloadTarget(dir, name, id)
	if _, err := os.Stat(target); err == nil {
		return report(fmt.Errorf("%s already exists", target))
	}
	if err := filex.WriteFileAtomic(target, data, 0o600); err != nil {
		return report(err)
	}

	fmt.Fprintf(a.out, "Saved %s (%s)\n", target, FormatFileSize(int64(len(data))))
	return nil
}

func (a *App) Delete(ctx context.Context, args []string) error {
	id, err := a.argOrPrompt(args, "Enter file id to delete")
	if err != nil {
		return report(err)
	}
	answer, err := GetSimpleText(a.reader, fmt.Sprintf("Delete %s permanently? (yes/no)", id), a.out)
	if err != nil {
		return report(err)
	}
	if !strings.EqualFold(answer, "yes") && !strings.EqualFold(answer, "y") {
		return report(errAborted)
	}

	if err := a.client.Delete(ctx, id); err != nil {
		return report(err)
	}
	fmt.Fprintln(a.out, "File deleted successfully")
	return nil
}
