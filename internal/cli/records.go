package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/S0me0neR0man/ourledger/internal/client"
	"github.com/S0me0neR0man/ourledger/internal/objects"
)

const requestTimeout = 10 * time.Second

// recordsCommand runs the client commands of one record type.
type recordsCommand struct {
	*RootOptions
	d objects.Descriptor

	start, end    uint64
	page, perPage uint64
}

func flagName(field string) string {
	return strings.ReplaceAll(field, "_", "-")
}

// NewRecordsCommand creates the command group of record type d.
func NewRecordsCommand(rootOpts *RootOptions, d objects.Descriptor) *cobra.Command {
	rc := &recordsCommand{RootOptions: rootOpts, d: d}

	cmd := &cobra.Command{
		Use:   d.Name,
		Short: fmt.Sprintf("Create, read, update, delete and query %ss", d.Name),
	}

	created, updated := &payloadFlags{}, &payloadFlags{}

	cmd.AddCommand(
		rc.command("get <id>", "Get one "+d.Name, cobra.ExactArgs(1), rc.get),
		created.bind(rc.command("create", "Create a "+d.Name, cobra.NoArgs, rc.create(created)), d),
		updated.bind(rc.command("update <id>", "Replace the fields of a "+d.Name, cobra.ExactArgs(1), rc.update(updated)), d),
		rc.command("delete <id>", "Delete a "+d.Name, cobra.ExactArgs(1), rc.delete),
		rc.rangeFlags(rc.command("range", fmt.Sprintf("List %ss with %s in [start, end]", d.Name, d.Date), cobra.NoArgs, rc.rangeRecords)),
		rc.command("above <threshold>", fmt.Sprintf("List %ss with %s above threshold", d.Name, d.Amount), cobra.ExactArgs(1), rc.above),
		rc.pageFlags(rc.command("page", fmt.Sprintf("List one page of %ss", d.Name), cobra.NoArgs, rc.paginate)),
		rc.command("sorted", fmt.Sprintf("List %ss by %s, largest first", d.Name, d.Amount), cobra.NoArgs, rc.sorted),
		rc.command("sum", fmt.Sprintf("Sum %s over all %ss", d.Amount, d.Name), cobra.NoArgs, rc.sum),
	)
	return cmd
}

type runFunc func(ctx context.Context, l *client.Ledger, f *OutputFormatter, args []string) error

func (rc *recordsCommand) command(use, short string, args cobra.PositionalArgs, run runFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rc.formatter(cmd)

			c, err := client.NewGRPCClient(rc.Addr, rc.Token, rc.dialOptions...)
			if err != nil {
				_ = f.Error("dial", err.Error())
				return WrapExitError(ExitCommandError, "dial", err)
			}
			defer c.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, cancel := context.WithTimeout(ctx, requestTimeout)
			defer cancel()

			f.VerboseLog("%s %s via %s", rc.d.Service, cmd.Name(), rc.Addr)
			return run(ctx, c.Ledger(rc.d), f, args)
		},
	}
}

// payloadFlags holds one flag per payload field of a command.
type payloadFlags struct {
	text    map[string]*string
	numbers map[string]*float64
	stamps  map[string]*uint64
}

func (p *payloadFlags) bind(cmd *cobra.Command, d objects.Descriptor) *cobra.Command {
	p.text = make(map[string]*string)
	p.numbers = make(map[string]*float64)
	p.stamps = make(map[string]*uint64)

	for _, field := range d.Fields {
		name := flagName(field.Name)
		switch field.Type {
		case objects.TextType:
			p.text[field.Name] = cmd.Flags().String(name, "", field.Usage)
		case objects.NumberType:
			p.numbers[field.Name] = cmd.Flags().Float64(name, 0, field.Usage)
		case objects.TimestampType:
			p.stamps[field.Name] = cmd.Flags().Uint64(name, 0, field.Usage)
		}
	}
	return cmd
}

func (p *payloadFlags) payload(d objects.Descriptor) *structpb.Struct {
	s := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(d.Fields))}
	for _, field := range d.Fields {
		switch field.Type {
		case objects.TextType:
			s.Fields[field.Name] = structpb.NewStringValue(*p.text[field.Name])
		case objects.NumberType:
			s.Fields[field.Name] = structpb.NewNumberValue(*p.numbers[field.Name])
		case objects.TimestampType:
			s.Fields[field.Name] = objects.Uint64Value(*p.stamps[field.Name])
		}
	}
	return s
}

func (rc *recordsCommand) rangeFlags(cmd *cobra.Command) *cobra.Command {
	cmd.Flags().Uint64Var(&rc.start, "start", 0, fmt.Sprintf("lowest %s, inclusive", rc.d.Date))
	cmd.Flags().Uint64Var(&rc.end, "end", ^uint64(0), fmt.Sprintf("highest %s, inclusive", rc.d.Date))
	return cmd
}

func (rc *recordsCommand) pageFlags(cmd *cobra.Command) *cobra.Command {
	cmd.Flags().Uint64Var(&rc.page, "page", 1, "page number, from 1")
	cmd.Flags().Uint64Var(&rc.perPage, "per-page", 10, "records per page")
	return cmd
}

func (rc *recordsCommand) fail(f *OutputFormatter, err error) error {
	st := status.Convert(err)

	code := ExitFailure
	switch st.Code() {
	case codes.Unavailable, codes.Unauthenticated, codes.DeadlineExceeded:
		code = ExitCommandError
	}

	_ = f.Error(st.Code().String(), st.Message())
	return WrapExitError(code, st.Code().String(), err)
}

func (rc *recordsCommand) badArg(f *OutputFormatter, what, arg string) error {
	msg := fmt.Sprintf("%s %q is not valid", what, arg)
	_ = f.Error(codes.InvalidArgument.String(), msg)
	return NewExitError(ExitCommandError, msg)
}

func (rc *recordsCommand) id(f *OutputFormatter, arg string) (uint64, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, rc.badArg(f, "id", arg)
	}
	return id, nil
}

func (rc *recordsCommand) one(f *OutputFormatter, rec *structpb.Struct, err error) error {
	if err != nil {
		return rc.fail(f, err)
	}
	return f.Records(rc.d, []*structpb.Struct{rec})
}

func (rc *recordsCommand) many(f *OutputFormatter, recs []*structpb.Struct, err error) error {
	if err != nil {
		return rc.fail(f, err)
	}
	return f.Records(rc.d, recs)
}

func (rc *recordsCommand) get(ctx context.Context, l *client.Ledger, f *OutputFormatter, args []string) error {
	id, err := rc.id(f, args[0])
	if err != nil {
		return err
	}
	rec, err := l.Get(ctx, id)
	return rc.one(f, rec, err)
}

func (rc *recordsCommand) create(p *payloadFlags) runFunc {
	return func(ctx context.Context, l *client.Ledger, f *OutputFormatter, _ []string) error {
		rec, err := l.Create(ctx, p.payload(rc.d))
		return rc.one(f, rec, err)
	}
}

func (rc *recordsCommand) update(p *payloadFlags) runFunc {
	return func(ctx context.Context, l *client.Ledger, f *OutputFormatter, args []string) error {
		id, err := rc.id(f, args[0])
		if err != nil {
			return err
		}
		rec, err := l.Update(ctx, id, p.payload(rc.d))
		return rc.one(f, rec, err)
	}
}

func (rc *recordsCommand) delete(ctx context.Context, l *client.Ledger, f *OutputFormatter, args []string) error {
	id, err := rc.id(f, args[0])
	if err != nil {
		return err
	}
	rec, err := l.Delete(ctx, id)
	return rc.one(f, rec, err)
}

func (rc *recordsCommand) rangeRecords(ctx context.Context, l *client.Ledger, f *OutputFormatter, _ []string) error {
	recs, err := l.Range(ctx, rc.start, rc.end)
	return rc.many(f, recs, err)
}

func (rc *recordsCommand) above(ctx context.Context, l *client.Ledger, f *OutputFormatter, args []string) error {
	threshold, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return rc.badArg(f, "threshold", args[0])
	}
	recs, err := l.Above(ctx, threshold)
	return rc.many(f, recs, err)
}

func (rc *recordsCommand) paginate(ctx context.Context, l *client.Ledger, f *OutputFormatter, _ []string) error {
	recs, err := l.Paginate(ctx, rc.page, rc.perPage)
	return rc.many(f, recs, err)
}

func (rc *recordsCommand) sorted(ctx context.Context, l *client.Ledger, f *OutputFormatter, _ []string) error {
	recs, err := l.SortedDesc(ctx)
	return rc.many(f, recs, err)
}

func (rc *recordsCommand) sum(ctx context.Context, l *client.Ledger, f *OutputFormatter, _ []string) error {
	sum, err := l.Sum(ctx)
	if err != nil {
		return rc.fail(f, err)
	}
	return f.Sum(rc.d, sum)
}
