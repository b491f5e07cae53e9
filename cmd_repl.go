package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/subcommands"

	"esta/lexer"
	"esta/parser"
	"esta/token"
	"esta/vm"
)

// replCmd implements the repl subcommand: a line-editing interactive
// session that accumulates input until it forms a complete program,
// then compiles and runs it.
type replCmd struct {
	disassemble  bool
	dumpBytecode bool
	dumpAST      bool
}

func (*replCmd) Name() string     { return "repl" }
func (*replCmd) Synopsis() string { return "Start an interactive Esta session" }
func (*replCmd) Usage() string {
	return `repl:
  Start an interactive REPL session.
`
}

func (cmd *replCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&cmd.disassemble, "disassemble", false, "print the disassembled bytecode of each compiled entry")
	f.BoolVar(&cmd.dumpBytecode, "dumpBytecode", false, "write the encoded bytecode of each compiled entry to a .nic file")
	f.BoolVar(&cmd.dumpAST, "dumpAST", false, "write the AST of each compiled entry to ast.json")
	f.BoolVar(&cmd.disassemble, "di", false, "shorthand for disassemble")
	f.BoolVar(&cmd.dumpBytecode, "du", false, "shorthand for dumpBytecode")
	f.BoolVar(&cmd.dumpAST, "da", false, "shorthand for dumpAST")
}

func (cmd *replCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	fmt.Println("\nWelcome to the Esta programming language!")

	rl, err := readline.New(">>> ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 %s\n", err.Error())
		return subcommands.ExitFailure
	}
	defer rl.Close()

	var buffer strings.Builder

	for {
		if buffer.Len() == 0 {
			rl.SetPrompt(">>> ")
		} else {
			rl.SetPrompt("... ")
		}

		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			buffer.Reset()
			continue
		}
		if err == io.EOF {
			return subcommands.ExitSuccess
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "💥 %s\n", err.Error())
			return subcommands.ExitFailure
		}

		if strings.TrimSpace(line) == "exit" && buffer.Len() == 0 {
			return subcommands.ExitSuccess
		}

		if buffer.Len() > 0 {
			buffer.WriteString("\n")
		}
		buffer.WriteString(line)
		source := buffer.String()

		statements, insts, dataSeg, compErr := compile(source)
		if compErr != nil {
			if isIncompleteInput(source) {
				continue
			}
			fmt.Fprintln(os.Stderr, compErr)
			buffer.Reset()
			continue
		}

		if cmd.disassemble {
			fmt.Print(disassembleAll(insts))
		}
		if cmd.dumpBytecode {
			encoded, err := encodeAll(insts)
			if err != nil {
				fmt.Fprintf(os.Stderr, "💥 Dump bytecode error:\n\t%s\n", err.Error())
			} else if err := os.WriteFile("repl.nic", encoded, 0644); err != nil {
				fmt.Fprintf(os.Stderr, "💥 Dump bytecode error:\n\t%s\n", err.Error())
			}
		}
		if cmd.dumpAST {
			if err := parser.WriteASTJSONToFile(statements, "ast.json"); err != nil {
				fmt.Fprintf(os.Stderr, "💥 Dump AST error:\n\t%s\n", err.Error())
			}
		}

		machine := vm.New(insts, dataSeg)
		if err := machine.Run(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			buffer.Reset()
			continue
		}
		if top, err := machine.Top(); err == nil {
			fmt.Println(top)
		}
		buffer.Reset()
	}
}

// isIncompleteInput re-lexes source on its own so the REPL can tell a
// genuinely malformed program from one that is simply still being
// typed: unbalanced braces, or a trailing token that clearly expects
// more (an operator, an opening paren, a keyword that always starts a
// block).
func isIncompleteInput(source string) bool {
	tokens, err := lexer.New(source).Scan()
	if err != nil {
		return false
	}
	return !isInputReady(tokens)
}

// isInputReady reports whether tokens form a balanced, structurally
// complete program fragment ready to be handed to the parser.
func isInputReady(tokens []token.Token) bool {
	braceBalance := 0
	for _, tok := range tokens {
		switch tok.TokenType {
		case token.LCUR:
			braceBalance++
		case token.RCUR:
			braceBalance--
		}
	}
	if braceBalance > 0 {
		return false
	}

	last := lastNonEOF(tokens)
	if last == nil {
		return true
	}

	switch last.TokenType {
	case token.ASSIGN,
		token.ADD,
		token.SUB,
		token.MULT,
		token.DIV,
		token.BANG,
		token.EQUAL_EQUAL,
		token.NOT_EQUAL,
		token.LESS,
		token.LESS_EQUAL,
		token.LARGER,
		token.LARGER_EQUAL,
		token.COMMA,
		token.LPA,
		token.LCUR,
		token.IF,
		token.ELSE,
		token.ELIF,
		token.WHILE,
		token.FOR,
		token.FUNC,
		token.RETURN,
		token.VAR,
		token.CONST,
		token.AND,
		token.OR:
		return false
	}

	return true
}

func lastNonEOF(tokens []token.Token) *token.Token {
	for i := len(tokens) - 1; i >= 0; i-- {
		if tokens[i].TokenType != token.EOF {
			return &tokens[i]
		}
	}
	return nil
}
