package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/essay/comments"
	essayentity "github.com/ovaphlow/pitchfork/service-redacao-go/internal/essay/entity"
	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/session"
	userentity "github.com/ovaphlow/pitchfork/service-redacao-go/internal/user/entity"
)

// printJSON prints v as indented JSON.
func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func printEntry(w io.Writer, e *session.Entry) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Nome:\t%s\n", e.DisplayName())
	fmt.Fprintf(tw, "ID:\t%s\n", e.ID)
	if e.Tipo != "" {
		fmt.Fprintf(tw, "Tipo:\t%s\n", e.Tipo)
	}
	if email := e.Credenciais.Get("email"); email != "" {
		fmt.Fprintf(tw, "E-mail:\t%s\n", email)
	}
	if e.AvatarURL != nil {
		fmt.Fprintf(tw, "Avatar:\t%s\n", *e.AvatarURL)
	}
	if !e.StoredAt.IsZero() {
		fmt.Fprintf(tw, "Desde:\t%s\n", e.StoredAt.Local().Format(time.RFC3339))
	}
	tw.Flush()
}

func userTable(w io.Writer, users []userentity.User) {
	if len(users) == 0 {
		fmt.Fprintln(w, "Nenhum usuário.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNOME\tUSERNAME\tTIPO")
	for _, u := range users {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.ID, dash(u.Nome), dash(u.Username), dash(u.Tipo))
	}
	tw.Flush()
}

func essayTable(w io.Writer, essays []essayentity.Essay) {
	if len(essays) == 0 {
		fmt.Fprintln(w, "Nenhuma redação.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTÍTULO\tSTATUS\tALUNO\tATUALIZADA")
	for _, e := range essays {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.ID, e.Titulo, e.Status, e.Aluno, e.Timestamp.Local().Format("2006-01-02 15:04"))
	}
	tw.Flush()
}

func essayDetail(w io.Writer, e *essayentity.Essay) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Título:\t%s\n", e.Titulo)
	fmt.Fprintf(tw, "ID:\t%s\n", e.ID)
	fmt.Fprintf(tw, "Status:\t%s\n", e.Status)
	fmt.Fprintf(tw, "Aluno:\t%s\n", e.Aluno)
	fmt.Fprintf(tw, "Professor:\t%s\n", e.Professor)
	if e.Turma != "" {
		fmt.Fprintf(tw, "Turma:\t%s\n", e.Turma)
	}
	fmt.Fprintf(tw, "Atualizada:\t%s\n", e.Timestamp.Local().Format(time.RFC3339))
	if p, err := essayentity.DecodePayload(e.Data); err == nil {
		n := 0
		for _, t := range p.Comments {
			n += len(t.Comments)
		}
		fmt.Fprintf(tw, "Comentários:\t%d em %d grupo(s)\n", n, len(p.Comments))
	}
	tw.Flush()
}

func threadList(w io.Writer, threads []comments.Thread) {
	if len(threads) == 0 {
		fmt.Fprintln(w, "Nenhum comentário.")
		return
	}
	for _, t := range threads {
		block, group, _ := comments.SplitTarget(t.Target)
		fmt.Fprintf(w, "[%s / %s]\n", block, group)
		for _, c := range t.Comments {
			fmt.Fprintf(w, "  %s  %s  %s\n", c.ID, c.CreatedAt, c.Content)
		}
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
